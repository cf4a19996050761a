//go:build !race

package forgeauth

func passwordHashCost() int {
	return 14
}
