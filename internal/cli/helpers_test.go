package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const towerEstimate = `
items:
  - id: tower
    description: Tower block roll-up
  - id: foundation
    parent_id: tower
    quantity: 120
    unit_cost: 450
    factor:
      id: ground-conditions
      dist:
        kind: triangular
        min: 0.9
        mode: 1.0
        max: 1.4
  - id: structure
    parent_id: tower
    quantity: 80
    unit_cost: 1200
    factor:
      id: steel-price
      dist:
        kind: pert
        min: 0.85
        mode: 1.05
        max: 1.5
correlations:
  - factor_a: ground-conditions
    factor_b: steel-price
    rho: 0.6
`

// writeEstimate drops an estimate YAML into a temp dir and returns its
// path.
func writeEstimate(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "estimate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
