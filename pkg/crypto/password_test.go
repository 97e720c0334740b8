package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPasswordProducesSaltDotHash(t *testing.T) {
	digest, err := HashPassword("secret123")
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(digest, "."))

	salt, hash, ok := strings.Cut(digest, ".")
	require.True(t, ok)
	require.Len(t, salt, 16)
	require.Len(t, hash, 64)
	require.NotContains(t, digest, "secret123")
}

func TestComparePasswordRoundTrip(t *testing.T) {
	digest, err := HashPassword("valid_password")
	require.NoError(t, err)
	require.True(t, ComparePassword(digest, "valid_password"))
}

func TestComparePasswordRejectsSuffixedPassword(t *testing.T) {
	for _, suffix := range []string{"x", "1", " ", "valid"} {
		digest, err := HashPassword("valid_password" + suffix)
		require.NoError(t, err)
		require.False(t, ComparePassword(digest, "valid_password"), "suffix %q", suffix)
	}
}

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	first, err := HashPassword("same")
	require.NoError(t, err)
	second, err := HashPassword("same")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.True(t, ComparePassword(first, "same"))
	require.True(t, ComparePassword(second, "same"))
}

func TestComparePasswordFailsClosedOnMalformedDigest(t *testing.T) {
	valid, err := HashPassword("pw")
	require.NoError(t, err)
	salt, hash, _ := strings.Cut(valid, ".")

	cases := map[string]string{
		"empty":             "",
		"missing separator": salt + hash,
		"short salt":        salt[:4] + "." + hash,
		"short hash":        salt + "." + hash[:10],
		"extra segment":     salt + "." + hash + ".ff",
		"non hex hash":      salt + "." + strings.Repeat("z", 64),
		"non hex salt":      strings.Repeat("g", 16) + "." + hash,
		"plaintext":         "pw",
	}
	for name, digest := range cases {
		t.Run(name, func(t *testing.T) {
			require.False(t, ComparePassword(digest, "pw"))
		})
	}
}

func TestSplitDigestReportsMalformed(t *testing.T) {
	_, _, err := splitDigest("nodot")
	require.ErrorIs(t, err, ErrMalformedDigest)
}
