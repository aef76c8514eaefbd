package assets

// LoadStyles returns the stylesheets to inject into every document: the
// built-in style named builtin (skipped when empty), then every stylesheet
// of dir (skipped when empty).
func LoadStyles(builtin, dir string) ([]string, error) {
	var out []string

	if builtin != "" {
		css, err := NewEmbeddedLoader().LoadStyle(builtin)
		if err != nil {
			return nil, err
		}
		out = append(out, css)
	}

	if dir != "" {
		loader, err := NewFilesystemLoader(dir)
		if err != nil {
			return nil, err
		}
		custom, err := loader.LoadStyles()
		if err != nil {
			return nil, err
		}
		out = append(out, custom...)
	}

	return out, nil
}
