package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/utxoledger/app/services/node/handlers"
	"github.com/ardanlabs/utxoledger/business/web/errs"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/signature"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/state"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/utxoledger/foundation/events"
	"github.com/ardanlabs/utxoledger/foundation/nameservice"
	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const minerKey = "0x8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"

type node struct {
	st      *state.State
	public  http.Handler
	private http.Handler
}

func newNode(t *testing.T) (node, database.PublicKey) {
	t.Helper()

	key, err := signature.PrivateKeyFromHex(minerKey)
	if err != nil {
		t.Fatalf("Should be able to load the miner key: %v", err)
	}
	pk := database.PublicKey(signature.PublicKey(key))

	folder := t.TempDir()
	if err := signature.SaveKey(filepath.Join(folder, "miner1"+nameservice.KeyExt), key); err != nil {
		t.Fatalf("Should be able to save the miner key: %v", err)
	}

	ns, err := nameservice.New(folder)
	if err != nil {
		t.Fatalf("Should be able to construct the name service: %v", err)
	}

	storage, err := memory.New()
	if err != nil {
		t.Fatalf("Should be able to open storage: %v", err)
	}

	st, err := state.New(state.Config{
		Beneficiary: pk.Address(),
		Host:        "localhost:9080",
		Storage:     storage,
		Genesis: genesis.Genesis{
			ChainID:       1,
			Version:       1,
			TransPerBlock: 10,
			Difficulty:    4,
			MiningReward:  50,
			TimeStamp:     1_700_000_000,
		},
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %v", err)
	}
	t.Cleanup(func() { st.Shutdown() })

	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		NS:       ns,
		Evts:     events.New("viewer:"),
	}

	n := node{
		st:      st,
		public:  handlers.PublicMux(cfg),
		private: handlers.PrivateMux(cfg),
	}

	return n, pk
}

func do(h http.Handler, method string, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	return w
}

// =============================================================================

func Test_PublicAPI(t *testing.T) {
	n, pk := newNode(t)

	key, _ := signature.PrivateKeyFromHex(minerKey)

	t.Log("Given the need to serve the ledger over http.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen asking for the status of a new chain.", testID)
		{
			w := do(n.public, http.MethodGet, "/v1/chain/status", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 200: got %d", failed, testID, w.Code)
			}

			var st struct {
				Height          uint32 `json:"height"`
				BeneficiaryName string `json:"beneficiary_name"`
			}
			if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the status: %v", failed, testID, err)
			}
			if st.Height != 0 || st.BeneficiaryName != "miner1" {
				t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, spew.Sdump(st))
				t.Fatalf("\t%s\tTest %d:\tShould be at genesis paying miner1.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be at genesis paying miner1.", success, testID)
		}

		block, err := n.st.MineNewBlock(context.Background())
		if err != nil {
			t.Fatalf("Should be able to mine block 1: %v", err)
		}
		cb := block.Values()[0]

		testID = 1
		t.Logf("\tTest %d:\tWhen listing the utxos of the miner.", testID)
		{
			w := do(n.public, http.MethodGet, "/v1/utxos/list/"+pk.Address().String(), nil)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 200: got %d", failed, testID, w.Code)
			}

			var us struct {
				Name    string          `json:"name"`
				Balance uint64          `json:"balance"`
				UTXOs   []database.UTXO `json:"utxos"`
			}
			if err := json.NewDecoder(w.Body).Decode(&us); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the utxos: %v", failed, testID, err)
			}
			if us.Balance != 50 || len(us.UTXOs) != 1 || us.UTXOs[0].TxID != cb.ID() {
				t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, spew.Sdump(us))
				t.Fatalf("\t%s\tTest %d:\tShould see the coinbase output.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould see the coinbase output.", success, testID)
		}

		tx := database.Tx{
			Version: 1,
			Inputs:  []database.TxIn{{PrevTxID: cb.ID(), PrevVout: 0, PubKey: pk, Data: database.StandardInput{}}},
			Outputs: []database.TxOut{{Value: 50, RecipientHash: database.Hash{9}}},
		}
		if err := tx.SignInput(0, key, database.SigHashAll); err != nil {
			t.Fatalf("Should be able to sign the transaction: %v", err)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen submitting a signed transaction.", testID)
		{
			w := do(n.public, http.MethodPost, "/v1/tx/submit", tx)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 200: got %d: %s", failed, testID, w.Code, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould receive a 200.", success, testID)

			if n.st.QueryMempoolLength() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould have the transaction in the mempool.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have the transaction in the mempool.", success, testID)
		}

		testID = 3
		t.Logf("\tTest %d:\tWhen submitting bad transactions.", testID)
		{
			empty := database.Tx{Version: 1, Outputs: tx.Outputs}
			w := do(n.public, http.MethodPost, "/v1/tx/submit", empty)

			var er errs.Response
			json.NewDecoder(w.Body).Decode(&er)
			if w.Code != http.StatusBadRequest || len(er.Fields) == 0 {
				t.Fatalf("\t%s\tTest %d:\tShould reject a transaction without inputs with field errors: got %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a transaction without inputs with field errors.", success, testID)

			bad := tx
			bad.Outputs = []database.TxOut{{Value: 51, RecipientHash: database.Hash{9}}}
			w = do(n.public, http.MethodPost, "/v1/tx/submit", bad)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould reject a rule breaking transaction: got %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a rule breaking transaction.", success, testID)

			w = do(n.public, http.MethodPost, "/v1/tx/submit", map[string]any{"version": 1, "bogus": true})
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould reject unknown fields: got %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould reject unknown fields.", success, testID)
		}

		block, err = n.st.MineNewBlock(context.Background())
		if err != nil {
			t.Fatalf("Should be able to mine block 2: %v", err)
		}

		testID = 4
		t.Logf("\tTest %d:\tWhen asking for a merkle proof.", testID)
		{
			w := do(n.public, http.MethodGet, "/v1/tx/proof/"+block.Hash().String()+"/"+tx.ID().String(), nil)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 200: got %d: %s", failed, testID, w.Code, w.Body.String())
			}

			var proof state.MerkleProof
			if err := json.NewDecoder(w.Body).Decode(&proof); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the proof: %v", failed, testID, err)
			}

			ok, err := proof.Verify()
			if err != nil || !ok || proof.MerkleRoot != block.Header.MerkleRoot {
				t.Fatalf("\t%s\tTest %d:\tShould be able to verify the proof: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to verify the proof.", success, testID)
		}

		testID = 5
		t.Logf("\tTest %d:\tWhen asking for blocks.", testID)
		{
			w := do(n.public, http.MethodGet, "/v1/blocks/list/0/latest", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 200: got %d", failed, testID, w.Code)
			}

			var blocks []struct {
				Hash database.Hash `json:"hash"`
			}
			if err := json.NewDecoder(w.Body).Decode(&blocks); err != nil || len(blocks) != 3 || blocks[2].Hash != block.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould get back every block in order: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get back every block in order.", success, testID)

			w = do(n.public, http.MethodGet, "/v1/blocks/hash/"+database.Hash{1}.String(), nil)
			if w.Code != http.StatusNotFound {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 404 for an unknown block: got %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a 404 for an unknown block.", success, testID)

			w = do(n.public, http.MethodGet, "/v1/blocks/hash/nothex", nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 400 for a bad hash: got %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a 400 for a bad hash.", success, testID)

			w = do(n.public, http.MethodGet, "/v1/blocks/list/2/1", nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 400 for an inverted range: got %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a 400 for an inverted range.", success, testID)
		}
	}
}

func Test_ProposeBlock(t *testing.T) {
	n, pk := newNode(t)

	t.Log("Given the need to accept blocks built outside the node.")
	{
		genesisBlock := n.st.LatestBlock()

		block, err := database.POW(context.Background(), database.POWArgs{
			Beneficiary: pk.Address(),
			Difficulty:  4,
			Reward:      50,
			PrevBlock:   genesisBlock,
		})
		if err != nil {
			t.Fatalf("Should be able to mine a block: %v", err)
		}

		testID := 0
		t.Logf("\tTest %d:\tWhen proposing a valid block.", testID)
		{
			w := do(n.private, http.MethodPost, "/v1/node/block/propose", database.NewBlockData(block))
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 200: got %d: %s", failed, testID, w.Code, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould receive a 200.", success, testID)

			if n.st.LatestBlock().Hash() != block.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould move the head to the block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould move the head to the block.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen proposing the same block again.", testID)
		{
			w := do(n.private, http.MethodPost, "/v1/node/block/propose", database.NewBlockData(block))
			if w.Code != http.StatusNotAcceptable {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 406: got %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a 406.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen proposing a block with a tampered hash.", testID)
		{
			data := database.NewBlockData(block)
			data.Hash = database.Hash{1}

			w := do(n.private, http.MethodPost, "/v1/node/block/propose", data)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 400: got %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a 400.", success, testID)
		}
	}
}
