package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "+254712345678", want: "+254712345678"},
		{in: "254712345678", want: "+254712345678"},
		{in: "0712345678", want: "+254712345678"},
		{in: "0112 345-678", want: "+254112345678"},
		{in: "(0712) 345 678", want: "+254712345678"},
		{in: "712345678", wantErr: true},
		{in: "+1555123456", wantErr: true},
		{in: "07123456", wantErr: true},
		{in: "+25471234567x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizePhone(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandRegions(t *testing.T) {
	got := ExpandRegions([]string{"Coast", "Nairobi", "Mombasa"})
	assert.Equal(t, []string{"Mombasa", "Kilifi", "Kwale", "Taita-Taveta", "Lamu", "Tana River", "Nairobi"}, got)

	assert.Empty(t, ExpandRegions(nil))
}

func TestCountiesAndRegions(t *testing.T) {
	assert.Len(t, Counties, 47)
	assert.Len(t, Regions, 8)

	total := 0
	for _, counties := range Regions {
		for _, c := range counties {
			assert.True(t, IsCounty(c), c)
		}
		total += len(counties)
	}
	assert.Equal(t, 47, total)
}

func TestTimeClass(t *testing.T) {
	assert.Equal(t, "rapid", TimeClass("10+0"))
	assert.Equal(t, "rapid", TimeClass("90+30"))
	assert.Equal(t, "blitz", TimeClass("5+3"))
	assert.Equal(t, "blitz", TimeClass("3+0"))
	assert.Equal(t, "bullet", TimeClass("1+1"))
	assert.Equal(t, "rapid", TimeClass("garbage"))
}

func TestRounds(t *testing.T) {
	assert.Equal(t, 5, RoundRobinRounds(6))
	assert.Equal(t, 5, RoundRobinRounds(5))
	assert.Equal(t, 3, SwissMinimumRounds(4))
	assert.Equal(t, 5, SwissMinimumRounds(32))
	assert.Equal(t, 6, SwissMinimumRounds(33))
	assert.Equal(t, 1, RecommendedSwissRounds(2))
	assert.Equal(t, 4, RecommendedSwissRounds(10))
}

func TestOTPHelpers(t *testing.T) {
	code, err := GenerateOTP()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.True(t, IsNumeric(code))

	assert.Equal(t, HashOTP("123456"), HashOTP("123456"))
	assert.NotEqual(t, HashOTP("123456"), HashOTP("654321"))
	assert.Len(t, HashOTP("000000"), 64)
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+254******678", MaskPhone("+254712345678"))
}
