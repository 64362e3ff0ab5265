package csvline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "plain fields",
			line: "ID001,LOC001",
			want: []string{"ID001", "LOC001"},
		},
		{
			name: "quoted field containing delimiter",
			line: `a,"b,c",d`,
			want: []string{"a", "b,c", "d"},
		},
		{
			name: "single quoted field",
			line: `"x"`,
			want: []string{"x"},
		},
		{
			name: "trailing delimiter drops empty token",
			line: "a,",
			want: []string{"a"},
		},
		{
			name: "empty local id",
			line: "ID002,\n",
			want: []string{"ID002"},
		},
		{
			name: "empty middle field kept",
			line: "a,,b",
			want: []string{"a", "", "b"},
		},
		{
			name: "leading empty field kept",
			line: ",b",
			want: []string{"", "b"},
		},
		{
			name: "doubled quote cancels out",
			line: `"say ""hi""",2`,
			want: []string{"say hi", "2"},
		},
		{
			name: "unterminated quote swallows delimiters",
			line: `a,"b,c`,
			want: []string{"a", "b,c"},
		},
		{
			name: "windows line ending",
			line: "ID001,LOC001\r\n",
			want: []string{"ID001", "LOC001"},
		},
		{
			name: "trailing whitespace trimmed",
			line: "ID001,LOC001   \t\n",
			want: []string{"ID001", "LOC001"},
		},
		{
			name: "leading whitespace preserved",
			line: " ID001, LOC001",
			want: []string{" ID001", " LOC001"},
		},
		{
			name: "empty line",
			line: "\n",
			want: nil,
		},
		{
			name: "only quotes",
			line: `"",x`,
			want: []string{"", "x"},
		},
		{
			name: "multibyte characters",
			line: "Clínica São José,LOC-ü",
			want: []string{"Clínica São José", "LOC-ü"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.line)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Split(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}
