// Command gateway runs the ISO 8583 acquirer gateway HTTP service.
package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/willians06/iso-acquirer-gateway/cmd/gateway/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("gateway exited with error")
		os.Exit(1)
	}
}
