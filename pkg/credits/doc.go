// Package credits tracks which photographers contributed to a run and
// writes the attribution file.
//
// The CSV layout is two columns, "Photographer" and "Profile URL", one row
// per distinct photographer in the order they were first credited.
package credits
