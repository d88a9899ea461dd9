// CLAUDE:SUMMARY Blocks configured resource types (images, fonts, media, stylesheets) on Rod pages through request hijacking.
package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// applyResourceBlocking fails requests of the configured types. Script
// requests are never blocked: custom elements need them to attach their
// shadow roots.
func applyResourceBlocking(page *rod.Page, types []string) {
	blockSet := blockSetOf(types)

	router := page.HijackRequests()
	router.MustAdd("*", func(ctx *rod.Hijack) {
		if shouldBlock(blockSet, string(ctx.Request.Type())) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
}

func blockSetOf(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "script" || t == "scripts" {
			continue
		}
		set[t] = true
	}
	return set
}

func shouldBlock(blockSet map[string]bool, resType string) bool {
	lower := strings.ToLower(resType)

	// Map CDP resource types to config names.
	switch lower {
	case "image":
		return blockSet["images"] || blockSet["image"]
	case "font":
		return blockSet["fonts"] || blockSet["font"]
	case "media":
		return blockSet["media"]
	case "stylesheet":
		return blockSet["stylesheets"] || blockSet["stylesheet"]
	}
	return blockSet[lower]
}
