package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFederationIdHex = "aa00000000000000000000000000000000000000000000000000000000bb00"

func TestFederationIdFromHex_RoundTrip(t *testing.T) {
	f, err := FederationIdFromHex(testFederationIdHex)
	require.NoError(t, err)
	assert.Equal(t, testFederationIdHex, f.String())
}

func TestFederationIdFromHex_WrongLength(t *testing.T) {
	_, err := FederationIdFromHex("aabb")
	require.Error(t, err)
}

func TestFederationId_HasPrefix(t *testing.T) {
	f, err := FederationIdFromHex(testFederationIdHex)
	require.NoError(t, err)
	assert.True(t, f.HasPrefix([]byte{0xaa, 0x00}))
	assert.False(t, f.HasPrefix([]byte{0xaa, 0xcc}))
}

func TestDerivePaymentId_Deterministic(t *testing.T) {
	a := DerivePaymentId("lnbc100n1invoiceone")
	b := DerivePaymentId("lnbc100n1invoiceone")
	c := DerivePaymentId("lnbc100n1invoicetwo")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
	for _, r := range a {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'))
	}
}
