// Package roi resolves the mutually exclusive ways a user can delimit the
// Region of Interest (marker functions, a traced function, or nothing) into
// one canonical Spec and the engine flags it implies.
package roi
