package scenario

import "intrusion-sim/internal/lifecycle"

// BuiltIn returns predefined campaigns.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"ransomware-wave": {
			Name:        "Ransomware Wave",
			Description: "Commodity ransomware crews hit a small business that hardens between waves.",
			Phases: []Phase{
				{
					Name:        "baseline",
					Description: "Opportunistic crews test an unprepared network.",
					Category:    "smb",
					Triggers:    []Trigger{{Event: EventImpactRate, Value: 0.05, Next: "incident-response"}},
				},
				{
					Name:        "hardening",
					Description: "Scheduled patching and configuration review.",
					Harden:      true,
					Category:    "smb",
				},
				{
					Name:        "incident-response",
					Description: "The business recovers from encrypted hosts and patches in a hurry.",
					Restore:     true,
					Harden:      true,
					Category:    "smb",
				},
			},
		},
		"apt-campaign": {
			Name:        "APT Campaign",
			Description: "A well-resourced actor returns repeatedly with growing capability.",
			Phases: []Phase{
				{
					Name:        "scouting",
					Description: "Low-effort reconnaissance and phishing.",
					Attacker:    &lifecycle.Attacker{Resources: 40, Motivation: 60},
					Triggers:    []Trigger{{Event: EventCompromiseRate, Value: 0.3, Next: "exploit"}},
				},
				{
					Name:        "tooling",
					Description: "The actor invests in custom tooling after failed attempts.",
					Attacker:    &lifecycle.Attacker{Resources: 70, Motivation: 80},
				},
				{
					Name:        "exploit",
					Description: "Full intrusion attempts with mature tradecraft.",
					Attacker:    &lifecycle.Attacker{Resources: 90, Motivation: 90},
					Triggers:    []Trigger{{Event: EventDetectionRate, Value: 0.2, Next: "eviction"}},
				},
				{
					Name:        "eviction",
					Description: "The defender hunts the actor out and hardens the estate.",
					Harden:      true,
					Restore:     true,
					Attacker:    &lifecycle.Attacker{Resources: 90, Motivation: 90},
				},
			},
		},
		"awareness-program": {
			Name:        "Awareness Program",
			Description: "An SME rolls out repeated hardening cycles against a steady threat mix.",
			Phases: []Phase{
				{Name: "before", Description: "No programme in place.", Category: "sme"},
				{Name: "quarter-1", Description: "First hardening cycle.", Category: "sme", Harden: true},
				{Name: "quarter-2", Description: "Second hardening cycle.", Category: "sme", Harden: true},
				{Name: "quarter-3", Description: "Third hardening cycle.", Category: "sme", Harden: true},
			},
		},
	}
}
