package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/state"
	"github.com/spf13/cobra"
)

var (
	block string
	txID  string
)

var proofCmd = &cobra.Command{
	Use:   "proof",
	Short: "Verify a transaction is committed to by a block",
	Run:   proofRun,
}

func init() {
	rootCmd.AddCommand(proofCmd)
	proofCmd.Flags().StringVarP(&block, "block", "b", "", "Hash of the block.")
	proofCmd.Flags().StringVarP(&txID, "txid", "x", "", "Id of the transaction.")
	proofCmd.MarkFlagRequired("block")
	proofCmd.MarkFlagRequired("txid")
}

func proofRun(cmd *cobra.Command, args []string) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/tx/proof/%s/%s", url, block, txID))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("node returned status %s", resp.Status)
	}

	var proof state.MerkleProof
	if err := json.NewDecoder(resp.Body).Decode(&proof); err != nil {
		log.Fatal(err)
	}

	ok, err := proof.Verify()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Merkle Root:", proof.MerkleRoot)
	fmt.Println("Verified:   ", ok)
}
