// Package broadcast reads the artifacts forge writes after `forge script --broadcast`.
package broadcast

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/gjson"
)

// LatestFile is the file forge rewrites on every broadcast.
const LatestFile = "run-latest.json"

// ErrMalformed is returned for artifacts that are not valid JSON.
var ErrMalformed = errors.New("malformed broadcast artifact")

// Contract is one contract created by a broadcast.
type Contract struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Address string `json:"address" yaml:"address"`
	TxHash  string `json:"tx_hash,omitempty" yaml:"tx_hash,omitempty"`
}

// Path returns where forge stores the latest broadcast of scriptFile on chainID
// below the project root.
func Path(root, scriptFile string, chainID int64) string {
	return filepath.Join(root, "broadcast", scriptFile, strconv.FormatInt(chainID, 10), LatestFile)
}

// Latest reads the latest broadcast for scriptFile on chainID. A missing file
// is reported with an error matching os.ErrNotExist.
func Latest(root, scriptFile string, chainID int64) ([]Contract, error) {
	return Read(Path(root, scriptFile, chainID))
}

// Read parses the broadcast artifact at path.
func Read(path string) ([]Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	contracts, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return contracts, nil
}

// Parse lists the contracts created by CREATE and CREATE2 transactions,
// including contracts deployed indirectly through factories.
func Parse(data []byte) ([]Contract, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformed
	}

	var out []Contract
	gjson.GetBytes(data, "transactions").ForEach(func(_, tx gjson.Result) bool {
		hash := tx.Get("hash").String()
		if isCreate(tx.Get("transactionType").String()) {
			if addr := normalize(tx.Get("contractAddress").String()); addr != "" {
				out = append(out, Contract{
					Name:    tx.Get("contractName").String(),
					Address: addr,
					TxHash:  hash,
				})
			}
		}
		tx.Get("additionalContracts").ForEach(func(_, extra gjson.Result) bool {
			if addr := normalize(extra.Get("address").String()); addr != "" {
				out = append(out, Contract{
					Name:    extra.Get("contractName").String(),
					Address: addr,
					TxHash:  hash,
				})
			}
			return true
		})
		return true
	})
	return out, nil
}

func isCreate(kind string) bool {
	switch strings.ToUpper(kind) {
	case "CREATE", "CREATE2":
		return true
	}
	return false
}

// normalize returns the checksummed form of addr, or "" when it is not an address.
func normalize(addr string) string {
	if !common.IsHexAddress(addr) {
		return ""
	}
	return common.HexToAddress(addr).Hex()
}
