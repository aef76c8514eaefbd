package markup

import "strings"

// InjectStyles inserts one <style> block per stylesheet into htmlContent, in order.
// It tries </head> first, then right after <body>, and prepends otherwise.
func InjectStyles(htmlContent string, styles []string) string {
	var block strings.Builder
	for _, css := range styles {
		if strings.TrimSpace(css) == "" {
			continue
		}
		block.WriteString("<style>")
		block.WriteString(sanitizeCSS(css))
		block.WriteString("</style>")
	}
	if block.Len() == 0 {
		return htmlContent
	}
	styleBlock := block.String()
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		if closeIdx := strings.Index(htmlContent[idx:], ">"); closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + styleBlock + htmlContent[insertPos:]
		}
	}

	return styleBlock + htmlContent
}

// sanitizeCSS escapes "</" so a stylesheet cannot close its <style> element.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
