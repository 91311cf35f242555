package lnpay

import (
	"testing"
	"time"

	apperrors "fmcd/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bolt11Vector1 is the official BOLT11 spec example: "Please make a
// donation of any amount using payment_hash
// 0001020304050607080900010203040506070809000102030405060708090102 to me
// @03e7156ae33b0a208d0744199163177e909e80176e55d97a2f221ede0f934dd9ad".
const bolt11Vector1 = "lnbc1pvjluezpp5qqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqypqdpl2pkx2ctnv5sxxmmwwd5kgetjypeh2ursdae8g6twvus8g6rfwvs8qun0dfjkxaq9qrsgquk0rl77nj30yxdy8j9vdx85fkpmdla2087ne0xh8nhedh8w27kyke0lp53ut353s06fv3qfegext0eh0ymjpf39tuven09sam30g4vgpfna3rh"

func TestDecodeBolt11SpecVector(t *testing.T) {
	info, err := Decode(bolt11Vector1, nil)
	require.NoError(t, err)

	assert.Equal(t, "0001020304050607080900010203040506070809000102030405060708090102", info.PaymentHash)
	assert.Equal(t, "03e7156ae33b0a208d0744199163177e909e80176e55d97a2f221ede0f934dd9ad", info.Destination)
	assert.EqualValues(t, 0, info.AmountMsat)
	assert.Equal(t, 3600*time.Second, info.Expiry)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("not-an-invoice", nil)
	assert.Error(t, err)
}

func TestBolt11ResolverReturnsValidationErrorForGarbage(t *testing.T) {
	resolver := NewBolt11Resolver(nil)

	_, err := resolver.Resolve("lnurl1dp68gurn8ghj7")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ValidationError, appErr.Category)
}

func TestBolt11ResolverRejectsEmptyDestination(t *testing.T) {
	resolver := NewBolt11Resolver(nil)

	_, err := resolver.Resolve("   ")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ValidationError, appErr.Category)
}

func TestBolt11ResolverDecodesSpecVector(t *testing.T) {
	resolver := NewBolt11Resolver(nil)

	info, err := resolver.Resolve(bolt11Vector1)
	require.NoError(t, err)
	assert.Equal(t, bolt11Vector1, info.Bolt11)
}

func TestPaymentInfoIsExpired(t *testing.T) {
	fresh := PaymentInfo{CreatedAt: time.Now(), Expiry: time.Hour}
	assert.False(t, fresh.IsExpired())

	stale := PaymentInfo{CreatedAt: time.Now().Add(-2 * time.Hour), Expiry: time.Hour}
	assert.True(t, stale.IsExpired())
}
