// Package template defines the template engine seam HTML renderers use, so a
// renderer can run on the bundled pongo2 engine or any engine honouring the
// same contract.
package template
