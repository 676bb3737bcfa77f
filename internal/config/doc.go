// Package config defines the format-agnostic profile model for the
// application, along with the Loader interface for reading a profile from a
// concrete source.
//
// A profile holds settings that rarely change between runs: where the
// instrumentation engine and its client live, the default pass timeout, and
// where finished results are published. Concrete loaders, such as the HCL
// one, live in separate packages.
package config
