// Command amacid runs the round state machine behind an ABCI socket server. It starts only
// the ABCI application (github.com/cometbft/cometbft/abci/server); the actual CometBFT
// consensus binary is an external process that dials in over this socket (spec §1's "we do
// not specify a transport layer or a host runtime" Non-goal). Grounded on
// pkg/consensus/abci_validator.go's startup sequencing (load config, open DB, wire
// application, serve) and github.com/cometbft/cometbft-db for the on-disk KV backend.
package main

import (
	"flag"
	"log"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	abciserver "github.com/cometbft/cometbft/abci/server"
	cometlog "github.com/cometbft/cometbft/libs/log"
	dbm "github.com/cometbft/cometbft-db"

	"github.com/dorafactory/amaci-core/pkg/abci"
	"github.com/dorafactory/amaci-core/pkg/config"
	"github.com/dorafactory/amaci-core/pkg/kvdb"
	"github.com/dorafactory/amaci-core/pkg/round"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var validatorID = flag.String("validator-id", "", "operator ID (overrides VALIDATOR_ID env var)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	if *validatorID != "" {
		cfg.ValidatorID = *validatorID
	}
	if err := cfg.ValidateForDevelopment(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		log.Fatalf("create data dir %s: %v", cfg.DataDir, err)
	}

	db, err := dbm.NewGoLevelDB("amacid", filepath.Clean(cfg.DataDir))
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	kv := kvdb.NewKVAdapter(db)

	store := round.NewStore(kv)
	clock := abci.NewBlockClock()

	machine, err := round.NewMachine(store, nil, nil, clock.Now)
	if err != nil {
		log.Fatalf("initialize round machine: %v", err)
	}

	funds := abci.NewEscrowFundsSource(kv, func(to string, amount *big.Int) {
		log.Printf("[amacid] payout %s -> %s (no bank module wired, recording only)", amount, to)
	})

	app := abci.NewApp(kv, machine, funds, clock)

	server := abciserver.NewSocketServer("tcp://"+cfg.ListenAddr, app)
	server.SetLogger(cometlog.NewTMLogger(cometlog.NewSyncWriter(os.Stdout)))

	if err := server.Start(); err != nil {
		log.Fatalf("start ABCI server: %v", err)
	}
	log.Printf("amacid ABCI server listening on %s (operator=%s, chain=%s)", cfg.ListenAddr, cfg.ValidatorID, cfg.ChainID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("amacid shutting down")
	if err := server.Stop(); err != nil {
		log.Printf("ABCI server stop error: %v", err)
	}
}
