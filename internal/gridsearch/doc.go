// Package gridsearch expands a parameter grid over a text template,
// writing one configuration file per point in the grid. Parameter
// placeholders look like $NAME$ and match case-insensitively; every
// generated file gets a YAML sidecar recording the exact values used.
// Conditional parameters (only_for) are scanned only when their
// controlling parameters take listed values, and collapse to their
// first value otherwise.
package gridsearch
