package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// authorizedUser is the credentials file layout Google client libraries
// accept in place of a service account key.
type authorizedUser struct {
	Type         string `json:"type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

func newSheetsAuthCmd() *cobra.Command {
	var (
		clientFile string
		out        string
		port       int
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Authorize spreadsheet access with a Google account",
		Long: "Runs the OAuth consent flow for an OAuth desktop client and writes an\n" +
			"authorized_user credentials file usable as GOOGLE_SERVICE_ACCOUNT_FILE.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"offline": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readClientJSON(clientFile)
			if err != nil {
				return err
			}
			cfg, err := google.ConfigFromJSON(raw, sheets.SpreadsheetsScope)
			if err != nil {
				return fmt.Errorf("oauth client config: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			tok, err := authorize(ctx, cmd, cfg, port)
			if err != nil {
				return err
			}
			if tok.RefreshToken == "" {
				return errors.New("no refresh token returned; revoke the app's access and retry")
			}

			f, err := os.OpenFile(out, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
			if err != nil {
				return fmt.Errorf("open %s: %w", out, err)
			}
			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			if err := enc.Encode(authorizedUser{
				Type:         "authorized_user",
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				RefreshToken: tok.RefreshToken,
			}); err != nil {
				_ = f.Close()
				return fmt.Errorf("write credentials: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved credentials to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientFile, "client", os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"), "OAuth client JSON file (or GOOGLE_OAUTH_CLIENT_JSON)")
	cmd.Flags().StringVarP(&out, "out", "o", "google-credentials.json", "credentials file to write")
	cmd.Flags().IntVar(&port, "port", 8085, "local port for the OAuth redirect")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for consent")
	return cmd
}

func readClientJSON(file string) ([]byte, error) {
	if v := os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"); v != "" {
		return []byte(v), nil
	}
	if file == "" {
		return nil, errors.New("set --client, GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON")
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read client file: %w", err)
	}
	return b, nil
}

// authorize serves the redirect on localhost and exchanges the returned code.
func authorize(ctx context.Context, cmd *cobra.Command, cfg *oauth2.Config, port int) (*oauth2.Token, error) {
	state := uuid.NewString()
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)
	send := func(r result) {
		select {
		case results <- r:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			send(result{err: fmt.Errorf("oauth error: %s", q.Get("error"))})
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			send(result{err: errors.New("oauth state mismatch")})
		default:
			fmt.Fprintln(w, "Autorisation enregistrée, vous pouvez fermer cette fenêtre.")
			send(result{code: q.Get("code")})
		}
	})

	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen for redirect: %w", err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize:\n%s\n",
		cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization: %w", ctx.Err())
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := cfg.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	}
}
