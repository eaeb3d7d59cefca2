package observe

import (
	"reflect"
	"testing"
)

func TestListenersNotifyInOrder(t *testing.T) {
	t.Parallel()

	var l Listeners[int]
	var got []string
	l.Subscribe(func(v int) { got = append(got, "a") })
	unsubB := l.Subscribe(func(v int) { got = append(got, "b") })
	l.Subscribe(func(v int) { got = append(got, "c") })

	l.Notify(1)
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	unsubB()
	unsubB()
	got = nil
	l.Notify(2)
	if want := []string{"a", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v after unsubscribe, got %v", want, got)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 listeners, got %d", l.Len())
	}
}

func TestListenersAllowSubscribeFromCallback(t *testing.T) {
	t.Parallel()

	var l Listeners[string]
	calls := 0
	l.Subscribe(func(string) {
		calls++
		l.Subscribe(func(string) {})
	})
	l.Notify("x")
	if calls != 1 || l.Len() != 2 {
		t.Fatalf("unexpected state calls=%d len=%d", calls, l.Len())
	}
}

func TestNilListenerIgnored(t *testing.T) {
	t.Parallel()

	var l Listeners[int]
	l.Subscribe(nil)()
	if l.Len() != 0 {
		t.Fatalf("nil listener must not be registered")
	}
	l.Notify(0)
}
