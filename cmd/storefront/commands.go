package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/angelmondragon/storefront/internal/app"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/users"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/shopspring/decimal"
)

const usage = `usage: storefront <command> [flags]

commands:
  login -u <username> -p <password>
  register -f key=value [-f key=value ...]
  logout
  whoami
  update-profile [-email] [-gender] [-telephone] [-introduce]
  cart list|add|remove|update|clear
  metrics`

func run(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, usage)
	}
	cmd, rest := args[0], args[1:]
	ctx = a.Logger.WithField(ctx, "command", cmd)

	switch cmd {
	case "login":
		return runLogin(ctx, a, rest, out)
	case "register":
		return runRegister(ctx, a, rest, out)
	case "logout":
		a.Users.Logout(ctx)
		return writeJSON(out, map[string]bool{"authenticated": a.Users.IsAuthenticated()})
	case "whoami":
		return runWhoami(ctx, a, out)
	case "update-profile":
		return runUpdateProfile(ctx, a, rest, out)
	case "cart":
		return runCart(ctx, a, rest, out)
	case "metrics":
		return runMetrics(a, out)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown command %q\n\n%s", cmd, usage))
	}
}

func runLogin(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlagSet("login")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	resp, err := a.Users.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	return writeJSON(out, resp)
}

// kvFlags collects repeated -f key=value pairs.
type kvFlags map[string]any

func (k kvFlags) String() string {
	pairs := make([]string, 0, len(k))
	for key, v := range k {
		pairs = append(pairs, fmt.Sprintf("%s=%v", key, v))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (k kvFlags) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	k[strings.TrimSpace(key)] = val
	return nil
}

func runRegister(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlagSet("register")
	fields := kvFlags{}
	fs.Var(fields, "f", "registration field as key=value (repeatable)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	resp, err := a.Users.Register(ctx, users.RegisterRequest(fields))
	if err != nil {
		return err
	}
	return writeJSON(out, resp)
}

func runWhoami(ctx context.Context, a *app.App, out io.Writer) error {
	if !a.Users.IsAuthenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "not logged in")
	}
	if _, err := a.Users.FetchUserInfo(ctx); err != nil {
		return err
	}
	user, _ := a.Users.User()
	view := map[string]any{"user": user, "admin": user.IsAdmin()}
	if exp, ok := a.Users.TokenExpiry(); ok {
		view["token_expires_at"] = exp
	}
	return writeJSON(out, view)
}

func runUpdateProfile(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlagSet("update-profile")
	fs.String("email", "", "new email")
	fs.String("gender", "", "new gender")
	fs.String("telephone", "", "new telephone")
	fs.String("introduce", "", "new self introduction")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var update users.UpdateUserRequest
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "email":
			update.Email = &v
		case "gender":
			update.Gender = &v
		case "telephone":
			update.Telephone = &v
		case "introduce":
			update.Introduce = &v
		}
	})
	if update.Empty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}

	resp, err := a.Users.UpdateUserInfo(ctx, update)
	if err != nil {
		return err
	}
	return writeJSON(out, resp)
}

type cartView struct {
	Items         []cart.CartItem `json:"items"`
	TotalQuantity int             `json:"total_quantity"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

func runCart(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage: storefront cart list|add|remove|update|clear")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
	case "add":
		fs := newFlagSet("cart add")
		id := fs.String("id", "", "product id")
		name := fs.String("name", "", "product name")
		price := fs.String("price", "0", "unit price")
		image := fs.String("image", "", "image url")
		category := fs.String("category", "", "category")
		description := fs.String("description", "", "description")
		qty := fs.Int("qty", 1, "quantity")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if *id == "" || *name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "-id and -name are required")
		}
		unit, err := decimal.NewFromString(*price)
		if err != nil || unit.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid price %q", *price))
		}
		added := a.Cart.AddItem(ctx, cart.Product{
			ID:          *id,
			Name:        *name,
			Price:       unit,
			ImageURL:    *image,
			Category:    *category,
			Description: *description,
		}, *qty)
		if !added {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "log in before adding items to the cart")
		}
	case "remove":
		fs := newFlagSet("cart remove")
		id := fs.String("id", "", "product id")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		a.Cart.RemoveItem(ctx, *id)
	case "update":
		fs := newFlagSet("cart update")
		id := fs.String("id", "", "product id")
		qty := fs.Int("qty", 1, "new quantity, 0 removes the item")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		a.Cart.UpdateQuantity(ctx, *id, *qty)
	case "clear":
		a.Cart.ClearCart(ctx)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown cart command %q", sub))
	}

	items := a.Cart.Items()
	if items == nil {
		items = []cart.CartItem{}
	}
	return writeJSON(out, cartView{
		Items:         items,
		TotalQuantity: a.Cart.TotalQuantity(),
		TotalPrice:    a.Cart.TotalPrice(),
	})
}

// runMetrics prints counter and gauge values from this process.
func runMetrics(a *app.App, out io.Writer) error {
	if a.Registry == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "metrics are disabled")
	}
	mfs, err := a.Registry.Gather()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "gathering metrics")
	}
	values := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				values[key+"_count"] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return writeJSON(out, values)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, fs.Name()+": invalid flags")
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
