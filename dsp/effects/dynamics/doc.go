// Package dynamics provides analog-modeled dynamics processors.
//
// The package contains seven compressor engines, each modeling the gain
// topology, program-dependent timing, and harmonic signature of a classic
// hardware design:
//
//   - Opto: optical feedback compressor with a dual-time-constant light
//     cell memory model and tube output stage
//   - FET: feedback FET compressor with fixed threshold, microsecond
//     attack range, and an all-buttons mode
//   - VCA: feedforward RMS compressor with OverEasy soft knee
//   - Bus: feedforward stereo bus compressor with stepped timing and
//     auto-release
//   - StudioFET / StudioVCA: cleaner studio variants driven by an
//     external sidechain sample
//   - Digital: transparent lookahead compressor with an exact dB-domain
//     gain computer
//
// UniversalCompressor wires the engines to a shared sidechain highpass
// filter, stereo linking, 2x oversampling, metering, and output stages.
// All processors are single-threaded; meter reads are safe from other
// goroutines.
package dynamics
