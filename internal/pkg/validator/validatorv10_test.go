package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	TokenSerial string `validate:"omitempty,serial"`
	Realm       string `validate:"omitempty,realm"`
	Count       *int   `validate:"required,gte=0"`
}

func TestV10Validator(t *testing.T) {
	t.Parallel()

	v, err := NewV10Validator()
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		n := 3
		assert.NoError(t, v.Validate(sample{TokenSerial: "LSAE00012345", Realm: "my.realm", Count: &n}))
	})

	t.Run("invalid serial and missing count", func(t *testing.T) {
		t.Parallel()

		err := v.Validate(sample{TokenSerial: "bad serial!"})
		require.Error(t, err)

		var verr V10ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "TokenSerial must be a valid token serial", verr.Values()["token_serial"])
		assert.Contains(t, verr.Values(), "count")
	})

	t.Run("negative count", func(t *testing.T) {
		t.Parallel()

		n := -1
		err := v.Validate(sample{Count: &n})

		var verr V10ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Values(), "count")
	})
}
