package qps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeRedirect(t *testing.T) {
	tests := []struct {
		name   string
		target string
		ticket string
		want   string
	}{
		{
			name:   "no query string",
			target: "https://app/x",
			ticket: "T1",
			want:   "https://app/x?qlikTicket=T1",
		},
		{
			name:   "existing query string",
			target: "https://app/x?y=1",
			ticket: "T1",
			want:   "https://app/x?y=1&qlikTicket=T1",
		},
		{
			name:   "existing parameters are not re-encoded",
			target: "https://app/x?q=a%20b&r=c+d",
			ticket: "T2",
			want:   "https://app/x?q=a%20b&r=c+d&qlikTicket=T2",
		},
		{
			name:   "target uri from module login",
			target: "https://qlik.internal/sense/app/xyz?opt=ctxmenu",
			ticket: "T3",
			want:   "https://qlik.internal/sense/app/xyz?opt=ctxmenu&qlikTicket=T3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeRedirect(tt.target, tt.ticket))
		})
	}
}
