// File: lixenwraith/layerconf/merge.go
package layerconf

// Merge combines sources into a freshly allocated tree. Later sources win:
// when both sides hold a map the maps are merged recursively, otherwise the
// later value replaces the earlier one outright (sequences are never
// concatenated). Inputs are not modified and nil sources are skipped.
func Merge(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, source := range sources {
		if source == nil {
			continue
		}
		mergeInto(result, source)
	}
	return result
}

func mergeInto(dst, src map[string]any) {
	for key, srcValue := range src {
		srcMap, srcIsMap := srcValue.(map[string]any)
		if dstMap, dstIsMap := dst[key].(map[string]any); dstIsMap && srcIsMap {
			// dstMap is always owned by the result at this point
			mergeInto(dstMap, srcMap)
			continue
		}
		dst[key] = cloneTree(srcValue)
	}
}
