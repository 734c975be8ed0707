package main

import (
	"github.com/marmotdata/icemeta/internal/cmd"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("icemetactl failed")
	}
}
