package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

type utxos struct {
	Address database.Hash   `json:"address"`
	Name    string          `json:"name"`
	Balance uint64          `json:"balance"`
	UTXOs   []database.UTXO `json:"utxos"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	privateKey, err := signature.LoadKey(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	address := database.PublicKey(signature.PublicKey(privateKey)).Address()
	fmt.Println("For Address:", address)

	us, err := fetchUTXOs(address)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(us.Balance)
}

func fetchUTXOs(address database.Hash) (utxos, error) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/utxos/list/%s", url, address))
	if err != nil {
		return utxos{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return utxos{}, fmt.Errorf("node returned status %s", resp.Status)
	}

	var us utxos
	if err := json.NewDecoder(resp.Body).Decode(&us); err != nil {
		return utxos{}, err
	}

	return us, nil
}
