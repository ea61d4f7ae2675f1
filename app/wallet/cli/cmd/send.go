package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/signature"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/spf13/cobra"
)

var (
	to    string
	value uint64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send value to an address",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address to pay.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
}

func sendRun(cmd *cobra.Command, args []string) {
	privateKey, err := signature.LoadKey(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	recipient, err := database.ToHash(to)
	if err != nil {
		log.Fatal(err)
	}

	address := database.PublicKey(signature.PublicKey(privateKey)).Address()
	us, err := fetchUTXOs(address)
	if err != nil {
		log.Fatal(err)
	}

	tx, err := buildTx(privateKey, us.UTXOs, recipient, value)
	if err != nil {
		log.Fatal(err)
	}

	data, err := json.Marshal(tx)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(resp.Status)
	fmt.Println(string(body))
}

// buildTx spends outputs in the order given until the value is covered. Any
// surplus is paid back to the sender.
func buildTx(privateKey *secp256k1.PrivateKey, available []database.UTXO, recipient database.Hash, value uint64) (database.Tx, error) {
	if value == 0 {
		return database.Tx{}, errors.New("value must be greater than zero")
	}

	pk := database.PublicKey(signature.PublicKey(privateKey))

	tx := database.Tx{
		Version: 1,
	}

	var total uint64
	for _, u := range available {
		if total >= value {
			break
		}

		if u.RecipientHash != pk.Address() {
			continue
		}

		tx.Inputs = append(tx.Inputs, database.TxIn{
			PrevTxID: u.TxID,
			PrevVout: u.Vout,
			PubKey:   pk,
			Data:     database.StandardInput{},
		})
		total += u.Value
	}

	if total < value {
		return database.Tx{}, fmt.Errorf("insufficient funds: have %d, need %d", total, value)
	}

	tx.Outputs = append(tx.Outputs, database.TxOut{Value: value, RecipientHash: recipient})
	if change := total - value; change > 0 {
		tx.Outputs = append(tx.Outputs, database.TxOut{Value: change, RecipientHash: pk.Address()})
	}

	for i := range tx.Inputs {
		if err := tx.SignInput(i, privateKey, database.SigHashAll); err != nil {
			return database.Tx{}, err
		}
	}

	return tx, nil
}
