package pipeline

// renderCandidates builds the ordered list of keyed backends to attempt for
// a render call. An explicit preference pins that backend first and the rest
// follow in default order, configured or not. Without an explicit preference
// ("auto"), only backends whose credential is configured are candidates. The
// guaranteed free fallback is not part of this list; Render always tries it
// last.
func (p *Pipeline) renderCandidates(preferred string) []KeyedBackend {
	if preferred == "" || preferred == "auto" {
		preferred = p.defaultPrefer
	}

	if preferred != "" && preferred != "auto" {
		var out []KeyedBackend
		for _, k := range p.keyed {
			if k.Name() == preferred {
				out = append(out, k)
			}
		}
		for _, k := range p.keyed {
			if k.Name() != preferred {
				out = append(out, k)
			}
		}
		return out
	}

	var out []KeyedBackend
	for _, k := range p.keyed {
		if k.Configured() {
			out = append(out, k)
		}
	}
	return out
}
