package dedup

// ValidateKeyColumns checks that every requested key column is available.
// An empty request is valid. On failure it returns *MissingColumnsError
// carrying the missing names and the full available list.
func ValidateKeyColumns(available, requested []string) error {
	have := make(map[string]struct{}, len(available))
	for _, c := range available {
		have[c] = struct{}{}
	}

	var missing []string
	for _, c := range requested {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 {
		return &MissingColumnsError{
			Missing:   missing,
			Available: append([]string(nil), available...),
		}
	}
	return nil
}
