package pathing

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"foresight/internal/types"
)

func TestDiscoverVulnerabilities(t *testing.T) {
	cases := []struct {
		name     string
		event    types.EnrichedEvent
		wantCVEs []string
		wantCWEs []string
	}{
		{
			name:     "cve in raw text",
			event:    types.EnrichedEvent{RawText: "Blocked exploit attempt for CVE-2021-44228 on jndi endpoint"},
			wantCVEs: []string{"CVE-2021-44228"},
		},
		{
			name:     "case insensitive matches",
			event:    types.EnrichedEvent{RawText: "cve-2023-1234 triggered cwe-79 filter"},
			wantCVEs: []string{"CVE-2023-1234"},
			wantCWEs: []string{"CWE-79"},
		},
		{
			name:     "structural cwe_id field",
			event:    types.EnrichedEvent{RawText: `{"alert": "injection", "cwe_id": "502"}`},
			wantCWEs: []string{"CWE-502"},
		},
		{
			name:     "structural cweid single quotes",
			event:    types.EnrichedEvent{RawText: `{'cweid': '89', 'tool': 'sqlmap'}`},
			wantCWEs: []string{"CWE-89"},
		},
		{
			name: "declared ids merge before text hits",
			event: types.EnrichedEvent{
				ObservedCVEIDs: []string{"cve-2022-0001"},
				ObservedCWEIDs: []string{"287"},
				RawText:        "also saw CVE-2022-0002 and CWE-89",
			},
			wantCVEs: []string{"CVE-2022-0001", "CVE-2022-0002"},
			wantCWEs: []string{"CWE-287", "CWE-89"},
		},
		{
			name:     "duplicates collapse",
			event:    types.EnrichedEvent{RawText: "CVE-2021-44228 CVE-2021-44228 CWE-20 cwe-20"},
			wantCVEs: []string{"CVE-2021-44228"},
			wantCWEs: []string{"CWE-20"},
		},
		{
			name: "empty raw text falls back to type and technique",
			event: types.EnrichedEvent{
				EventType:      "exploit_CVE-2024-3094_attempt",
				MitreTechnique: "T1190",
			},
			wantCVEs: []string{"CVE-2024-3094"},
		},
		{
			name:  "nothing to find",
			event: types.EnrichedEvent{RawText: "routine heartbeat"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cves, cwes := DiscoverVulnerabilities(tc.event)
			if diff := cmp.Diff(tc.wantCVEs, cves); diff != "" {
				t.Errorf("CVEs mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantCWEs, cwes); diff != "" {
				t.Errorf("CWEs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInferTechnique(t *testing.T) {
	assert.Equal(t, "T1190", InferTechnique([]string{"CWE-89"}))
	assert.Equal(t, "T1190", InferTechnique([]string{"CWE-99999", "CWE-89"}), "first recognized weakness wins")
	assert.Equal(t, "T1078", InferTechnique([]string{"CWE-287"}))
	assert.Empty(t, InferTechnique([]string{"CWE-99999"}))
	assert.Empty(t, InferTechnique(nil))
}

func TestCanonicalCWE(t *testing.T) {
	cases := map[string]string{
		"CWE-79":   "CWE-79",
		"cwe-79":   "CWE-79",
		"CWE_79":   "CWE-79",
		"79":       "CWE-79",
		" cwe287 ": "CWE-287",
		"":         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, canonicalCWE(in), "input %q", in)
	}
}
