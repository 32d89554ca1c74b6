package sequence

// Source produces a reproducible stream of uniform floats in [0,1).
//
// Implemented by randsrc.PCG (production, seeded) and testutil.FixedSource
// (tests, predetermined stream). The engine never implements its own
// random-number algorithm; all randomness is injected through this
// interface so a fixed seed reproduces a fixed ordering.
type Source interface {
	Float64() float64
}
