// Package tape models a professional reel-to-reel tape machine: record
// and playback emphasis networks, magnetic hysteresis, machine-specific
// harmonic profiles, head geometry losses, wow and flutter transport
// modulation, and formulation-dependent noise.
//
// Machine processes one channel; Stereo pairs two machines with shared
// transport modulation and adjacent-track crosstalk. All per-instance
// randomness (noise, flutter jitter) is seeded through WithSeed, so two
// machines built with the same seed render identical output.
package tape
