package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// VulnerabilityScanTool produces a deterministic, clearly labeled
// SIMULATED scan report. It performs no network activity of any kind;
// the output is canned training/demo data.
type VulnerabilityScanTool struct{}

type vulnerabilityScanArgs struct {
	Target string `json:"target"`
}

func (v *VulnerabilityScanTool) Name() string { return "vulnerability_scan" }

func (v *VulnerabilityScanTool) Description() string {
	return "Perform a simulated vulnerability scan on a target IP or domain. Results are synthetic demo data, not live scan output."
}

func (v *VulnerabilityScanTool) Parameters() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target": map[string]any{"type": "string", "description": "Target IP address or domain name"},
		},
		"required": []string{"target"},
	}
}

func (v *VulnerabilityScanTool) Execute(_ context.Context, rawArgs string) (Result, error) {
	var args vulnerabilityScanArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return Result{Error: "invalid arguments: " + err.Error()}, nil
	}

	report := fmt.Sprintf(`[SIMULATED] Vulnerability Scan Results for %s:
- Open Ports: 22 (SSH), 80 (HTTP), 443 (HTTPS)
- Detected Services: OpenSSH 8.2, Apache 2.4.41
- Potential Vulnerabilities: CVE-2021-3156 (sudo vulnerability)
- Risk Level: Medium
`, args.Target)
	return Result{Output: report}, nil
}
