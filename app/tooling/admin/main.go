// This program performs administrative tasks against a stopped node's
// ledger database.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/utxoledger/app/tooling/admin/commands"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/utxoledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	if len(os.Args) < 2 {
		return errors.New("usage: admin [utxos|blocks] ...")
	}

	gen, err := genesis.Load(genesis.DefaultPath)
	if err != nil {
		return err
	}

	storage, err := leveldb.Open("zblock/blocks.db")
	if err != nil {
		return err
	}

	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...), "build", build)
	}

	db, err := database.New(database.Config{
		Genesis:   gen,
		Storage:   storage,
		EvHandler: ev,
	})
	if err != nil {
		storage.Close()
		return err
	}
	defer db.Close()

	return processCommands(os.Args, db)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, db *database.Database) error {
	switch args[1] {
	case "utxos":
		if err := commands.UTXOs(args, db); err != nil {
			return fmt.Errorf("getting utxos: %w", err)
		}
	case "blocks":
		if err := commands.Blocks(args, db); err != nil {
			return fmt.Errorf("getting blocks: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
