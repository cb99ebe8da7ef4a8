// Package prompt assembles image-generation prompts from wall-bed
// configurations and classifies chat messages that ask for an image.
package prompt

import (
	"fmt"
	"strings"

	"github.com/oakline/wallbed-studio/internal/domain"
)

const basePrompt = `Generate an exceptionally realistic, ultra-high-definition image of a Murphy wallbed unit (foldable murphy wallbed), seamlessly integrated into a modern, minimalist interior. The design should emphasize clean lines, geometric paneling, and a sophisticated, clutter-free aesthetic. This must be a Murphy wallbed with a floating bed design, giving it an airy and contemporary feel. The image should always include a window from which natural light is casting directly onto the Murphy wallbed, creating a warm and inviting atmosphere.`

const closingPrompt = ` only follow the given instructions, only same location cabinets if needed, only same amount cabinets if needed, only same location cupboard if needed, foldable bed, no base of bed, temperature = 0, bright room, fully lit room, sun light shining on the bed, floating bed, floating bed, murphy bed, murphy, murphy wall bed, wallbed, wall bed, 8k picture, 8k picture, realistic picture, realistic picture, lively environment, lively environment, welcoming picture, natural sunlight, The Murphy wallbed should be situated in a spacious, well-lit room with high-end finishes, featuring neutral-toned walls, hardwood flooring, and subtle, inviting decor elements. The room must always include a window positioned to allow natural light to cascade directly onto the Murphy wallbed, creating a warm and realistic atmosphere. The rendering should emphasize impeccable detail, clean lines, balanced proportions, and a sense of refined elegance. The overall impression should be a blend of functionality, sophistication, and a touch of modern luxury, with the floating bed adding to its unique appeal. Focus on photorealistic details, including soft, natural shadows, realistic material textures, accurate reflections, and a believable lighting balance between natural and artificial light, making the scene feel inviting and cozy.`

// Compose folds a configuration into the prompt string sent to the
// image-generation API. It is pure: the same config always yields the
// same string, and no clause from a prior configuration survives a
// field change. Optional clauses are independent and order-fixed:
// size, material, lighting, cupboards, cabinets, dressing table.
func Compose(cfg domain.WallbedConfig) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if cfg.BedSize != "" {
		fmt.Fprintf(&b, " The Murphy wallbed features a comfortable, floating and foldable %s sized bed, designed to blend seamlessly into the wall unit and appear suspended above the floor.", cfg.BedSize)
	}

	if cfg.Material != "" {
		fmt.Fprintf(&b, " The primary material of the Murphy wallbed is a high-quality %s with a smooth, semi-matte finish, showing realistic wood grain or texture. The color should be a neutral tone that complements the natural light.", cfg.Material)
	}

	if cfg.Lighting != "" {
		fmt.Fprintf(&b, "  In addition to the natural light, integrate a sleek, built-in %s lighting system within the Murphy wallbed, emphasizing its architectural lines and creating subtle highlights and shadows, particularly around the floating bed base. The artificial lighting should enhance, not compete with, the natural light.", cfg.Lighting)
	}

	if cfg.HasCupboard {
		b.WriteString(" The Murphy wallbed unit includes precisely aligned, built-in cupboards, maintaining a consistent panel design.")
		if cfg.CupboardCount.Symmetric() {
			fmt.Fprintf(&b, " There must be exactly %d equally sized cupboards, perfectly integrated into the overall design of the Murphy wallbed.", *cfg.CupboardCount.Count)
		} else {
			fmt.Fprintf(&b, " There must be exactly %d cupboards on the left and exactly %d cupboards on the right, mirroring each other for a symmetrical look within the Murphy wallbed design.", cfg.CupboardCount.Left, cfg.CupboardCount.Right)
		}
		// The side restriction is always explicit so no cupboard is
		// implied anywhere else on the unit.
		fmt.Fprintf(&b, " Position the cupboards strictly on the %s side of the Murphy wallbed, maintaining the overall clean lines and minimalist design. No cupboards should be placed on other locations of the murphy wallbed.", cfg.CupboardLocation)
	}

	if cfg.HasCabinets {
		fmt.Fprintf(&b, " Incorporate exactly %d seamlessly integrated cabinets on the %s area of the Murphy wallbed, ensuring they blend harmoniously with the surrounding panel design. These are the only cabinets that should be on the Murphy wallbed unit.", cfg.CabinetCount, cfg.CabinetPlacement)
	}

	if cfg.HasDressingTable {
		fmt.Fprintf(&b, " Include a minimalist, %s style dressing table integrated on the %s side of the Murphy wallbed, accompanied by exactly %d built-in cabinets that follow the overall design principles.", cfg.DressingTableStyle, cfg.DressingTableSide, cfg.DressingTableCabinets)
	}

	b.WriteString(closingPrompt)
	return b.String()
}
