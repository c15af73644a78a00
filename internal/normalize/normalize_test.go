package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	t.Run("trims and lowercases", func(t *testing.T) {
		require.Equal(t, "acme corp", Name("  Acme Corp  "))
	})

	t.Run("collapses internal whitespace", func(t *testing.T) {
		require.Equal(t, "acme corp ltd", Name("Acme \t Corp\n  Ltd"))
	})

	t.Run("whitespace-only is empty", func(t *testing.T) {
		require.Equal(t, "", Name("   \t\n "))
		require.Equal(t, "", Name(""))
	})

	t.Run("idempotent", func(t *testing.T) {
		inputs := []string{"Acme   Corp", "  foo ", "BAR", "", "a  b\tc"}
		for _, in := range inputs {
			once := Name(in)
			require.Equal(t, once, Name(once))
		}
	})
}

func TestPositionKey(t *testing.T) {
	require.Equal(t, "engineering:senior backend engineer",
		PositionKey("engineering", "  Senior   Backend Engineer "))

	t.Run("identical positions collide", func(t *testing.T) {
		a := PositionKey("engineering", "Backend Engineer")
		b := PositionKey("engineering", "backend   engineer")
		require.Equal(t, a, b)
	})

	t.Run("different categories do not collide", func(t *testing.T) {
		a := PositionKey("engineering", "manager")
		b := PositionKey("sales", "manager")
		require.NotEqual(t, a, b)
	})
}
