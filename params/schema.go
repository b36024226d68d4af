// Package params holds the species and land-type parameter tables and
// validates every change made to them.
package params

// Species parameter names.
const (
	KeyWBirth      = "w_birth"
	KeySigmaBirth  = "sigma_birth"
	KeyBeta        = "beta"
	KeyBetaFodder  = "beta_fodder"
	KeyBetaPrey    = "beta_prey"
	KeyEta         = "eta"
	KeyAHalf       = "a_half"
	KeyPhiAge      = "phi_age"
	KeyWHalf       = "w_half"
	KeyPhiWeight   = "phi_weight"
	KeyMu          = "mu"
	KeyGamma       = "gamma"
	KeyZeta        = "zeta"
	KeyXi          = "xi"
	KeyOmega       = "omega"
	KeyF           = "F"
	KeyFFodder     = "F_fodder"
	KeyDeltaPhiMax = "DeltaPhiMax"
	KeyBirthAgeMin = "BirthAge_min"
	KeyPrey        = "prey"
)

// Land parameter names.
const (
	KeyFMax      = "f_max"
	KeyHabitable = "habitable"
)

// Species names known to the registry.
const (
	Herbivore = "Herbivore"
	Carnivore = "Carnivore"
	Human     = "Human"
)

// Schema lists the keys a parameter table must define and the range rules
// that apply to them. Every numeric key must be non-negative.
type Schema struct {
	Numeric  []string // required numeric keys
	Flags    []string // required boolean keys, exempt from range checks
	Capped   []string // numeric keys limited to [0, 1]
	Positive []string // numeric keys that must be strictly positive
}

func (s Schema) isNumeric(key string) bool { return contains(s.Numeric, key) }
func (s Schema) isFlag(key string) bool    { return contains(s.Flags, key) }

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// baseNumeric are the keys every species shares.
var baseNumeric = []string{
	KeyWBirth, KeySigmaBirth, KeyEta, KeyAHalf, KeyPhiAge, KeyWHalf,
	KeyPhiWeight, KeyMu, KeyGamma, KeyZeta, KeyXi, KeyOmega, KeyF,
}

func withKeys(extra ...string) []string {
	keys := make([]string, 0, len(baseNumeric)+len(extra))
	keys = append(keys, baseNumeric...)
	return append(keys, extra...)
}

// SpeciesSchemas is the closed set of species the simulation understands.
// Adding a species means adding its schema here and its behaviour in the
// animals package.
var SpeciesSchemas = map[string]Schema{
	Herbivore: {
		Numeric: withKeys(KeyBeta),
		Flags:   []string{KeyPrey},
		Capped:  []string{KeyBeta, KeyEta},
	},
	Carnivore: {
		Numeric:  withKeys(KeyBeta, KeyDeltaPhiMax),
		Flags:    []string{KeyPrey},
		Capped:   []string{KeyBeta, KeyEta},
		Positive: []string{KeyDeltaPhiMax},
	},
	Human: {
		Numeric:  withKeys(KeyBetaFodder, KeyBetaPrey, KeyFFodder, KeyDeltaPhiMax, KeyBirthAgeMin),
		Flags:    []string{KeyPrey},
		Capped:   []string{KeyBetaFodder, KeyBetaPrey, KeyEta},
		Positive: []string{KeyDeltaPhiMax},
	},
}

// LandSchema applies to every land type.
var LandSchema = Schema{
	Numeric: []string{KeyFMax},
	Flags:   []string{KeyHabitable},
}
