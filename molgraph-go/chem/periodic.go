package chem

// organicSubset holds the elements that may be written without brackets,
// keyed by symbol.
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true,
	"S": true, "F": true, "Cl": true, "Br": true, "I": true,
}

// aromaticSymbols maps lowercase aromatic atom spellings to element symbols.
var aromaticSymbols = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
	"se": "Se", "as": "As",
}

// knownElements is the set of element symbols the reader accepts inside brackets.
var knownElements = map[string]bool{
	"H": true, "He": true, "Li": true, "Be": true, "B": true, "C": true,
	"N": true, "O": true, "F": true, "Ne": true, "Na": true, "Mg": true,
	"Al": true, "Si": true, "P": true, "S": true, "Cl": true, "Ar": true,
	"K": true, "Ca": true, "Sc": true, "Ti": true, "V": true, "Cr": true,
	"Mn": true, "Fe": true, "Co": true, "Ni": true, "Cu": true, "Zn": true,
	"Ga": true, "Ge": true, "As": true, "Se": true, "Br": true, "Kr": true,
	"Rb": true, "Sr": true, "Y": true, "Zr": true, "Nb": true, "Mo": true,
	"Tc": true, "Ru": true, "Rh": true, "Pd": true, "Ag": true, "Cd": true,
	"In": true, "Sn": true, "Sb": true, "Te": true, "I": true, "Xe": true,
	"Cs": true, "Ba": true, "La": true, "Ce": true, "Pr": true, "Nd": true,
	"Pm": true, "Sm": true, "Eu": true, "Gd": true, "Tb": true, "Dy": true,
	"Ho": true, "Er": true, "Tm": true, "Yb": true, "Lu": true, "Hf": true,
	"Ta": true, "W": true, "Re": true, "Os": true, "Ir": true, "Pt": true,
	"Au": true, "Hg": true, "Tl": true, "Pb": true, "Bi": true, "Po": true,
	"At": true, "Rn": true, "Fr": true, "Ra": true, "Ac": true, "Th": true,
	"Pa": true, "U": true,
}

// standardValences returns the standard valences of an element in increasing
// order, or nil when hydrogens should never be inferred for it.
func standardValences(symbol string) []int {
	switch symbol {
	case "B":
		return []int{3}
	case "C":
		return []int{4}
	case "N":
		return []int{3, 5}
	case "O":
		return []int{2}
	case "P":
		return []int{3, 5}
	case "S":
		return []int{2, 4, 6}
	case "F", "Cl", "Br", "I":
		return []int{1}
	case "H":
		return []int{1}
	}
	return nil
}
