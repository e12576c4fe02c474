package pipeline

// Select returns the units attached to stageName or global, in registration order.
func Select(units []Unit, stageName string) []Unit {
	selected := make([]Unit, 0, len(units))
	for _, u := range units {
		if u.Stage.Matches(stageName) {
			selected = append(selected, u)
		}
	}

	return selected
}
