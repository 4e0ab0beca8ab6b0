package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	gsheet "montra/internal/sheets/google"
)

func sheetsAuthCmd() *cobra.Command {
	var (
		port    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Authorize the Google Sheets export with an OAuth client",
		Long: `Run the OAuth consent flow for GOOGLE_OAUTH_CLIENT_FILE and store the
token at GOOGLE_OAUTH_TOKEN_FILE. The OAuth client must list
http://localhost:<port>/callback as an authorized redirect URI.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if appCfg.GoogleOAuthClientFile == "" {
				return errors.New("GOOGLE_OAUTH_CLIENT_FILE is not set")
			}
			clientJSON, err := os.ReadFile(appCfg.GoogleOAuthClientFile)
			if err != nil {
				return fmt.Errorf("read client file: %w", err)
			}
			oc, err := gsheet.OAuthConfig(clientJSON, "http://localhost:"+port+"/callback")
			if err != nil {
				return err
			}
			outFile := appCfg.GoogleOAuthTokenFile
			if outFile == "" {
				outFile = "token.json"
			}

			code, err := awaitCode(cmd, oc, port, timeout)
			if err != nil {
				return err
			}
			tok, err := oc.Exchange(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("token exchange: %w", err)
			}
			if err := gsheet.SaveToken(outFile, tok); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s\n", outFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "8085", "local port for the OAuth redirect")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the authorization")
	return cmd
}

// awaitCode prints the consent URL and serves the redirect until the code
// arrives.
func awaitCode(cmd *cobra.Command, oc *oauth2.Config, port string, timeout time.Duration) (string, error) {
	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			trySend(errCh, fmt.Errorf("authorization denied: %s", q.Get("error")))
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			trySend(codeCh, q.Get("code"))
		}
	})
	srv := &http.Server{Addr: "localhost:" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			trySend(errCh, err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize:\n%s\n", oc.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-time.After(timeout):
		return "", errors.New("authorization timed out")
	case <-cmd.Context().Done():
		return "", cmd.Context().Err()
	}
}

func trySend[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}
