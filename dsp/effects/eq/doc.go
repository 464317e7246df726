// Package eq implements analog-modeled equalizer engines: a British
// console 4-band EQ with E-Series and G-Series voicings, the console
// saturation stage shared by both, and a passive tube program EQ with
// an LC boost/cut network and a triode make-up stage.
//
// All engines process one channel per instance. Per-instance component
// tolerances and noise are seeded through WithSeed, so two instances
// built with the same seed render bit-identical output.
package eq
