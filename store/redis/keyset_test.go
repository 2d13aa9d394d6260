package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeySetSkipsRepeatedScanKeys(t *testing.T) {
	scanned := []string{
		"ledger/charges/2024-01/A/chg_1",
		"ledger/charges/2024-01/B/chg_2",
		"ledger/charges/2024-01/A/chg_1",
		"ledger/charges/2024-02/A/chg_3",
		"ledger/charges/2024-01/B/chg_2",
	}

	seen := make(keySet)
	var batch []string
	for _, k := range scanned {
		if seen.add(k) {
			batch = append(batch, k)
		}
	}

	assert.Equal(t, []string{
		"ledger/charges/2024-01/A/chg_1",
		"ledger/charges/2024-01/B/chg_2",
		"ledger/charges/2024-02/A/chg_3",
	}, batch)
}
