package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/willians06/iso-acquirer-gateway/internal/acquirer"
	"github.com/willians06/iso-acquirer-gateway/internal/config"
	"github.com/willians06/iso-acquirer-gateway/internal/httpserver"
	"github.com/willians06/iso-acquirer-gateway/internal/iso8583"
	"github.com/willians06/iso-acquirer-gateway/internal/logging"
	"github.com/willians06/iso-acquirer-gateway/internal/rsaops"
)

// bdkHex is the shared Base Derivation Key for the terminal fleet's
// DUKPT hierarchy, used to derive the data working key that decrypts
// `! EZ` track data during sale authorization.
const bdkHex = "0123456789ABCDEFFEDCBA9876543210"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the acquirer gateway HTTP server",
	Long:  `Start the ISO 8583 acquirer gateway, listening for key-init, sale and token-provisioning requests over HTTP.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg := config.Get()
		logging.Init(cfg.Log.Level, cfg.Log.Human)

		gw, err := buildGateway(cfg)
		if err != nil {
			return fmt.Errorf("failed to build gateway: %w", err)
		}

		router := httpserver.NewRouter(gw, cfg.Server.PublicDir)
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		var stopOnce sync.Once
		stopChan := make(chan os.Signal, 1)
		signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-stopChan
			log.Info().Str("signal", sig.String()).Msg("shutting down gateway")
			stopOnce.Do(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("graceful shutdown failed")
				}
			})
		}()

		log.Info().Str("address", addr).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

		log.Info().Msg("gateway stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// buildGateway loads the two RSA key pairs and the terminal allow-list,
// and constructs the acquirer.Gateway that backs every HTTP handler.
func buildGateway(cfg *config.Config) (*acquirer.Gateway, error) {
	transportKeyPEM, err := os.ReadFile(cfg.Keys.TransportKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read transport key: %w", err)
	}
	transportKey, err := rsaops.LoadPrivateKeyPEM(transportKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("load transport key: %w", err)
	}

	tokenKeyPEM, err := os.ReadFile(cfg.Keys.TokenSigningPath)
	if err != nil {
		return nil, fmt.Errorf("read token signing key: %w", err)
	}
	tokenKey, err := rsaops.LoadPrivateKeyPEM(tokenKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("load token signing key: %w", err)
	}

	allowlist, err := loadAllowlist(cfg.Terminals.AllowlistPath)
	if err != nil {
		return nil, fmt.Errorf("load terminal allow-list: %w", err)
	}

	bdk, err := iso8583.HexToBytes(bdkHex)
	if err != nil {
		return nil, fmt.Errorf("decode BDK: %w", err)
	}

	return acquirer.NewGateway(transportKey, tokenKey, bdk, allowlist, log.Logger)
}

// loadAllowlist reads a newline-delimited list of terminal serial
// numbers permitted to request a provisioning token. Blank lines and
// lines starting with '#' are ignored. A missing file yields an empty,
// deny-all list rather than an error, so a fresh deployment fails safe.
func loadAllowlist(path string) (map[string]bool, error) {
	allowlist := make(map[string]bool)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return allowlist, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		allowlist[line] = true
	}
	return allowlist, scanner.Err()
}
