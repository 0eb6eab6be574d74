package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fragmede/shopterm/internal/auth"
	"github.com/fragmede/shopterm/internal/forms"
	"github.com/fragmede/shopterm/internal/render"
)

func newLoginCmd(flags *globalFlags) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, flags, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set SHOPTERM_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set SHOPTERM_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, flags *globalFlags, email, password string) error {
	if email == "" {
		email = os.Getenv("SHOPTERM_EMAIL")
	}
	if password == "" {
		password = os.Getenv("SHOPTERM_PASSWORD")
	}

	out := cmd.OutOrStdout()
	if email == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("email is required (use --email flag or SHOPTERM_EMAIL env var)")
		}
		fmt.Fprint(out, "Email: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("reading email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if password == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or SHOPTERM_PASSWORD env var)")
		}
		fmt.Fprint(out, "Password: ")
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = string(b)
	}

	if err := forms.New().Validate(forms.Login{Email: email, Password: password}); err != nil {
		return err
	}

	e, err := setup(flags)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.RequestTimeout*2)
	defer cancel()

	fmt.Fprintf(out, "Signing in to %s...\n", e.cfg.APIBaseURL)
	user, err := e.client.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return commandError("login failed", err)
	}

	fmt.Fprintln(out, "✓ Signed in")
	fmt.Fprintf(out, "  User: %s (%s)\n", user.DisplayName(), user.Email)
	if !user.IsEmailVerified {
		fmt.Fprintln(out, "  Email not verified yet")
	}
	return nil
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			if !e.session.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			if err := e.client.Logout(); err != nil {
				return fmt.Errorf("clearing session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(flags *globalFlags) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			if !e.session.IsAuthenticated() {
				fmt.Fprintln(out, "Not signed in. Run 'shopterm login'.")
				return nil
			}

			user := e.session.User()
			if refresh || user == nil {
				ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.RequestTimeout*2)
				defer cancel()
				if user, err = e.client.Me(ctx); err != nil {
					return commandError("loading profile", err)
				}
				if err := e.session.SetUser(*user); err != nil {
					e.log.Warn().Err(err).Msg("saving refreshed profile")
				}
			}
			printUser(out, user, e.session)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch the profile from the server")
	return cmd
}

func printUser(w io.Writer, user *auth.User, session *auth.Session) {
	fmt.Fprintf(w, "%s <%s>\n", user.DisplayName(), user.Email)
	if user.BirthDate != "" {
		fmt.Fprintf(w, "  Born:     %s\n", user.BirthDate)
	}
	if user.Gender != "" {
		fmt.Fprintf(w, "  Gender:   %s\n", user.Gender)
	}
	fmt.Fprintf(w, "  Verified: %t\n", user.IsEmailVerified)
	if exp, ok := session.AccessExpiry(); ok {
		fmt.Fprintf(w, "  Access expires %s\n", relative(exp))
	}
}

func relative(t time.Time) string {
	if t.Before(time.Now()) {
		return render.TimeAgo(t) + " (will refresh on next request)"
	}
	return "in " + time.Until(t).Round(time.Second).String()
}

func newOrdersCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List your orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			if !e.session.IsAuthenticated() {
				return fmt.Errorf("not signed in\nRun 'shopterm login' first")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.RequestTimeout*3)
			defer cancel()
			orders, err := e.client.ListOrders(ctx)
			if err != nil {
				return commandError("listing orders", err)
			}
			if len(orders) == 0 {
				fmt.Fprintln(out, "No orders yet.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tTOTAL\tMETHOD\tPLACED")
			fmt.Fprintln(w, "──\t──────\t─────\t──────\t──────")
			for _, o := range orders {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					o.ID, o.Status, render.FormatPrice(o.TotalPrice), o.DeliveryMethod, render.FormatDate(o.CreatedAt))
			}
			return w.Flush()
		},
	}
}

func newDoctorCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, cache and API connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "API:      %s\n", e.cfg.APIBaseURL)
			fmt.Fprintf(out, "Cache:    %s\n", e.cfg.DBPath)
			fmt.Fprintf(out, "Log:      %s\n", e.cfg.LogPath)
			fmt.Fprintf(out, "Session:  %s\n", e.cfg.SessionBackend)

			failed := false
			check := func(name string, err error) {
				if err != nil {
					failed = true
					fmt.Fprintf(out, "✗ %s: %v\n", name, err)
					return
				}
				fmt.Fprintf(out, "✓ %s\n", name)
			}

			check("cache database", e.db.Ping())

			ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.RequestTimeout)
			defer cancel()
			check("API reachable", e.client.Health(ctx))

			if e.session.IsAuthenticated() {
				_, err := e.client.Me(ctx)
				check("session valid", err)
			} else {
				fmt.Fprintln(out, "- not signed in")
			}

			if failed {
				return fmt.Errorf("some checks failed")
			}
			return nil
		},
	}
}
