// Package design provides digital IIR filter coefficient designers.
//
// The functions in this package produce biquad coefficients consumable by
// dsp/filter/biquad for runtime processing. It includes RBJ-style designers
// (Lowpass, Highpass, Peak, shelves), first-order sections, and Butterworth
// cascades for higher-order slopes.
package design
