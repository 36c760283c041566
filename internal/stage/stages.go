package stage

import (
	"intrusion-sim/internal/fuzzy"
)

const (
	accessPointBaseline   = 0.5
	accessPointVulnerable = 0.8
	collectedDataValue    = 0.5
)

type factors map[Factor]float64

// roll scores a stage and takes exactly one Float64 draw. An unmet hard
// prerequisite forces the chance to zero.
func roll(name Name, p Params, in Inputs, f factors, prerequisite bool, src Source) Outcome {
	f[FactorPosture] = 1 - fuzzy.Clamp01(in.Posture)
	f[FactorResources] = p.Resources.Degree(in.Resources)
	var raw float64
	for _, k := range factorOrder {
		if w, ok := p.Weights[k]; ok {
			raw += w * f[k]
		}
	}
	out := Outcome{Stage: name, RawChance: raw, Chance: fuzzy.Clamp01(raw), Gated: !prerequisite}
	if out.Gated {
		out.Chance = 0
	}
	out.Draw = src.Float64()
	out.Success = out.Draw < out.Chance
	return out
}

func indicator(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

func saturate(n int, at float64) float64 {
	if !(at > 0) {
		return 0
	}
	return fuzzy.Clamp01(float64(n) / at)
}

// Reconnoiter scans the target. Success yields the catalog's indicators.
func Reconnoiter(p Params, in Inputs, cat Catalog, src Source) (Outcome, *ReconInfo) {
	out := roll(Reconnaissance, p, in, factors{
		FactorMotivation: p.Motivation.Degree(in.Motivation),
	}, true, src)
	if !out.Success {
		return out, nil
	}
	info := cat.Recon.clone()
	return out, &info
}

// DevelopResources attempts to grow attacker capability. On success it takes
// one Intn draw and returns the increase in [IncreaseMin, IncreaseMax].
func DevelopResources(p Params, in Inputs, src Source) (Outcome, float64) {
	out := roll(ResourceDevelopment, p, in, factors{
		FactorMotivation: p.Motivation.Degree(in.Motivation),
	}, true, src)
	if !out.Success {
		return out, 0
	}
	return out, float64(p.IncreaseMin + src.Intn(p.IncreaseMax-p.IncreaseMin+1))
}

// GainInitialAccess benefits from known vulnerabilities; recon may be nil.
func GainInitialAccess(p Params, in Inputs, recon *ReconInfo, src Source) Outcome {
	var vulns int
	if recon != nil {
		vulns = len(recon.Vulnerabilities)
	}
	return roll(InitialAccess, p, in, factors{
		FactorRecon: saturate(vulns, p.Saturation),
	}, true, src)
}

// Execute runs code on the foothold. It requires initial access.
func Execute(p Params, in Inputs, initialAccess bool, recon *ReconInfo, src Source) Outcome {
	ap := accessPointBaseline
	if recon != nil && len(recon.Vulnerabilities) > 0 {
		ap = accessPointVulnerable
	}
	return roll(Execution, p, in, factors{FactorAccessPoint: ap}, initialAccess, src)
}

// EstablishPersistence requires execution.
func EstablishPersistence(p Params, in Inputs, executed bool, src Source) Outcome {
	return roll(Persistence, p, in, factors{FactorExecution: indicator(executed)}, executed, src)
}

// EscalatePrivileges requires persistence.
func EscalatePrivileges(p Params, in Inputs, persistence bool, src Source) Outcome {
	return roll(PrivilegeEscalation, p, in, factors{FactorPersistence: indicator(persistence)}, persistence, src)
}

// EvadeDefenses requires persistence.
func EvadeDefenses(p Params, in Inputs, persistence bool, src Source) Outcome {
	return roll(DefenseEvasion, p, in, factors{FactorPersistence: indicator(persistence)}, persistence, src)
}

// AccessCredentials requires persistence; privilege raises the chance.
func AccessCredentials(p Params, in Inputs, persistence, privileged bool, cat Catalog, src Source) (Outcome, *Credentials) {
	out := roll(CredentialAccess, p, in, factors{
		FactorPersistence: indicator(persistence),
		FactorPrivilege:   indicator(privileged),
	}, persistence, src)
	if !out.Success {
		return out, nil
	}
	creds := cat.Credentials
	return out, &creds
}

// DiscoverSystems requires persistence; privilege raises the chance. A
// successful roll returns a non-empty list when the catalog has systems.
func DiscoverSystems(p Params, in Inputs, persistence, privileged bool, cat Catalog, src Source) (Outcome, []string) {
	out := roll(Discovery, p, in, factors{
		FactorPersistence: indicator(persistence),
		FactorPrivilege:   indicator(privileged),
	}, persistence, src)
	if !out.Success || len(cat.Systems) == 0 {
		return out, nil
	}
	return out, append([]string(nil), cat.Systems...)
}

// MoveLaterally requires persistence and at least one discovered system. On
// success it takes one Intn draw to pick the target uniformly.
func MoveLaterally(p Params, in Inputs, persistence, privileged bool, discovered []string, src Source) (Outcome, *string) {
	out := roll(LateralMovement, p, in, factors{
		FactorPersistence: indicator(persistence),
		FactorPrivilege:   indicator(privileged),
		FactorDiscovered:  saturate(len(discovered), p.Saturation),
	}, persistence && len(discovered) > 0, src)
	if !out.Success {
		return out, nil
	}
	target := discovered[src.Intn(len(discovered))]
	return out, &target
}

// CollectData requires persistence; privilege raises the chance.
func CollectData(p Params, in Inputs, persistence, privileged bool, cat Catalog, src Source) (Outcome, *string) {
	out := roll(Collection, p, in, factors{
		FactorPersistence: indicator(persistence),
		FactorPrivilege:   indicator(privileged),
	}, persistence, src)
	if !out.Success {
		return out, nil
	}
	label := cat.DataLabel
	return out, &label
}

// EstablishC2 requires persistence.
func EstablishC2(p Params, in Inputs, persistence bool, src Source) Outcome {
	return roll(CommandAndControl, p, in, factors{FactorPersistence: indicator(persistence)}, persistence, src)
}

// Exfiltrate requires persistence; collected data may raise the chance.
func Exfiltrate(p Params, in Inputs, persistence bool, collected *string, src Source) Outcome {
	return roll(Exfiltration, p, in, factors{
		FactorPersistence: indicator(persistence),
		FactorData:        dataValue(collected),
	}, persistence, src)
}

// DeliverImpact is the terminal stage. The description depends on whether
// data was collected earlier in the run.
func DeliverImpact(p Params, in Inputs, persistence bool, collected *string, cat Catalog, src Source) (Outcome, *string) {
	out := roll(Impact, p, in, factors{
		FactorPersistence: indicator(persistence),
		FactorData:        dataValue(collected),
	}, persistence, src)
	if !out.Success {
		return out, nil
	}
	desc := cat.DisruptionImpact
	if collected != nil {
		desc = cat.BreachImpact
	}
	return out, &desc
}

func dataValue(collected *string) float64 {
	if collected == nil {
		return 0
	}
	return collectedDataValue
}
