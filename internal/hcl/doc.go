// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. Profiles are parsed with hclparse, decoded with gohcl, and
// evaluated against a context exposing tool_dir, cwd and env.
package hcl
