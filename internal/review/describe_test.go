package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	doc := richProposed()
	end := "2024-06"
	doc.Work[0].EndDate = &end

	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{path: "basics.label", want: `"Senior Engineer"`, wantOK: true},
		{path: "basics.phone", want: `""`, wantOK: true},
		{path: "work.1.highlights", want: `["x", "y"]`, wantOK: true},
		{path: "work.1.endDate", want: `"2024-06"`, wantOK: true},
		{path: "work.2.endDate", want: "null", wantOK: true},
		{path: "work.2", want: `{company="NewCo" position="" startDate="" endDate=null highlights=[]}`, wantOK: true},
		{path: "skills.Cloud.keywords", want: `["AWS"]`, wantOK: true},
		{path: "work.3", wantOK: false},
		{path: "skills.Missing", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p, err := ParsePath(tt.path)
			if !assert.NoError(t, err) {
				return
			}
			got, ok := Describe(doc, p)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
