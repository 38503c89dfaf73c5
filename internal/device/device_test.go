package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		ua       string
		wantType string
	}{
		{
			name:     "desktop chrome",
			ua:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			wantType: TypeDesktop,
		},
		{
			name:     "iphone safari",
			ua:       "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			wantType: TypeMobile,
		},
		{
			name:     "ipad safari",
			ua:       "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1",
			wantType: TypeTablet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.ua)
			assert.Equal(t, tt.wantType, d.Type)
			assert.NotEmpty(t, d.Browser)
			assert.NotEmpty(t, d.OS)
		})
	}
}

func TestClassify_EmptyAgent(t *testing.T) {
	d := Classify("")
	assert.Equal(t, "Unknown", d.Browser)
	assert.Equal(t, "Unknown", d.OS)
	assert.Equal(t, TypeDesktop, d.Type)
}

func TestClassifyByKeywords(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{"CustomClient/1.0 (iPad; Mobile)", TypeTablet},
		{"some-tablet-app android", TypeTablet},
		{"weird-android-thing", TypeMobile},
		{"Something Mobile", TypeMobile},
		{"curl/8.4.0", TypeDesktop},
		{"", TypeDesktop},
	}

	for _, tt := range tests {
		t.Run(tt.ua, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyByKeywords(tt.ua))
		})
	}
}
