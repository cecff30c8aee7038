package knowledge

import "fmt"

// techniqueNames covers every technique referenced by the transition
// graph and response catalog. Anything else falls back to a generic
// label so reports never show a bare ID without context.
var techniqueNames = map[string]string{
	"T1003":     "OS Credential Dumping",
	"T1021":     "Remote Services",
	"T1041":     "Exfiltration Over C2 Channel",
	"T1046":     "Network Service Discovery",
	"T1059":     "Command and Scripting Interpreter",
	"T1078":     "Valid Accounts",
	"T1083":     "File and Directory Discovery",
	"T1110":     "Brute Force",
	"T1112":     "Modify Registry",
	"T1190":     "Exploit Public-Facing Application",
	"T1204":     "User Execution",
	"T1486":     "Data Encrypted for Impact",
	"T1505":     "Server Software Component",
	"T1550":     "Use Alternate Authentication Material",
	"T1558":     "Steal or Forge Kerberos Tickets",
	"T1560":     "Archive Collected Data",
	"T1562":     "Impair Defenses",
	"T1562.001": "Impair Defenses: Disable or Modify Tools",
	"T1592":     "Gather Victim Host Information",
	"T1595":     "Active Scanning",
}

// TechniqueName resolves a technique ID to a human-readable name.
func TechniqueName(id string) string {
	if name, ok := techniqueNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Adversary Technique %s", id)
}

// ExploitationTechniques are the IDs that indicate an attacker has
// already crossed the perimeter.
var ExploitationTechniques = map[string]bool{
	"T1190": true,
	"T1059": true,
	"T1505": true,
	"T1110": true,
}

// ReconTechniques are the IDs that indicate pre-attack surveying.
var ReconTechniques = map[string]bool{
	"T1595": true,
	"T1592": true,
	"T1046": true,
	"T1083": true,
}
