// Package nameservice reads the zblock/accounts folder and creates a name
// service lookup for the key files kept there.
package nameservice

import (
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/signature"
)

// KeyExt is the file extension of a private key file.
const KeyExt = ".key"

// NameService maintains a map of addresses for name lookup.
type NameService struct {
	accounts map[database.Hash]string
}

// New constructs a Name Service with the addresses of the key files found
// under the root folder.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[database.Hash]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != KeyExt {
			return nil
		}

		privateKey, err := signature.LoadKey(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		address := database.PublicKey(signature.PublicKey(privateKey)).Address()
		ns.accounts[address] = strings.TrimSuffix(filepath.Base(fileName), KeyExt)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified address.
func (ns *NameService) Lookup(address database.Hash) string {
	name, exists := ns.accounts[address]
	if !exists {
		return address.String()
	}
	return name
}

// Copy returns a copy of the map of addresses and names.
func (ns *NameService) Copy() map[database.Hash]string {
	return maps.Clone(ns.accounts)
}
