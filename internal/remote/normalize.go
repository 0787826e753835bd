package remote

// NormalizeRecipes extracts the recipe list from a backend response
// payload. The backend has shipped the list under several shapes over
// time, so the accepted forms are checked in a fixed fallback order:
//
//  1. object with a "recommendations" array
//  2. object with a "results" array
//  3. bare array
//  4. anything else: empty list
func NormalizeRecipes(payload any) []map[string]any {
	switch v := payload.(type) {
	case map[string]any:
		if list := asRecipeList(v["recommendations"]); list != nil {
			return list
		}
		if list := asRecipeList(v["results"]); list != nil {
			return list
		}
	case []any:
		if list := asRecipeList(v); list != nil {
			return list
		}
	}
	return []map[string]any{}
}

func asRecipeList(value any) []map[string]any {
	arr, ok := value.([]any)
	if !ok {
		return nil
	}
	list := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			list = append(list, m)
		}
	}
	return list
}

// RecipeTitle reads the display title of a normalized recipe, accepting
// both the French and English field names used by the backend.
func RecipeTitle(rec map[string]any) string {
	for _, key := range []string{"titre", "title"} {
		if s, ok := rec[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
