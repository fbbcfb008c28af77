package server

// schema is a JSON Schema fragment.
type schema = map[string]any

// Tool is one entry of tools/list.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema schema `json:"inputSchema"`
}

func prop(kind, description string) schema {
	return schema{"type": kind, "description": description}
}

func withDefault(p schema, v any) schema {
	p["default"] = v
	return p
}

func object(props schema, required ...string) schema {
	s := schema{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// transferProperties describe the byte layout shared by pixels_export and
// pixels_import, merged with the tool's own properties.
func transferProperties(own schema) schema {
	depth := withDefault(prop("integer", "Bits per sample, 1 to 64"), 8)
	depth["minimum"], depth["maximum"] = 1, 64
	endian := withDefault(prop("string", "Byte order of multi-byte samples and units"), "msb")
	endian["enum"] = []string{"msb", "lsb"}
	format := withDefault(prop("string", "Numeric representation of samples"), "unsigned")
	format["enum"] = []string{"unsigned", "signed", "float"}

	props := schema{
		"type": withDefault(prop("string",
			"Quantum type naming the samples and their order, e.g. RGB, RGBA, BGRA, CMYK, Gray, GrayAlpha, Index, CbYCrY"), "RGBA"),
		"depth":  depth,
		"endian": endian,
		"format": format,
		"pack": withDefault(prop("boolean",
			"Pack sub-byte depths into one bitstream per row; false stores samples in 8, 16, 32 or 64-bit units"), true),
		"pad": withDefault(prop("integer", "Zero bytes written after every pixel"), 0),
	}
	for k, v := range own {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns the tools in the order tools/list reports them.
func GetToolDefinitions() []Tool {
	size := prop("string", "Geometry WIDTHxHEIGHT, required for raw formats")

	return []Tool{
		{
			Name:        "image_identify",
			Description: "Read the header of an image file and report its format, geometry, depth, colorspace, storage class and alpha without decoding the pixels.",
			InputSchema: object(schema{
				"path":  prop("string", "Path to the image file. A format prefix such as RGB: may be given"),
				"size":  size,
				"depth": prop("integer", "Sample depth of raw formats"),
			}, "path"),
		},
		{
			Name:        "image_formats",
			Description: "List the registered image formats and whether each can be read or written.",
			InputSchema: object(schema{}),
		},
		{
			Name:        "image_convert",
			Description: "Convert an image from one format to another. Formats are chosen by TAG: prefixes or file extensions.",
			InputSchema: object(schema{
				"input":   prop("string", "Source image path, e.g. photo.png or RGB:pixels.bin"),
				"output":  prop("string", "Destination path, e.g. out.miff or GRAY:out.raw"),
				"size":    size,
				"depth":   prop("integer", "Sample depth of raw input and of the output"),
				"quality": prop("integer", "Compression quality for lossy encoders, 1-100"),
				"options": prop("object", "Coder options such as quantum:format=floating-point or miff:compression=zstd"),
			}, "input", "output"),
		},
		{
			Name:        "image_crop",
			Description: "Crop a rectangular region from an image, optionally scale it, and return it as base64-encoded PNG.",
			InputSchema: object(schema{
				"path":  prop("string", "Path to the image file"),
				"x1":    prop("integer", "Left edge (0-based)"),
				"y1":    prop("integer", "Top edge (0-based)"),
				"x2":    prop("integer", "Right edge (exclusive)"),
				"y2":    prop("integer", "Bottom edge (exclusive)"),
				"scale": withDefault(prop("number", "Scale factor applied after cropping, e.g. 2.0"), 1.0),
				"size":  size,
			}, "path", "x1", "y1", "x2", "y2"),
		},
		{
			Name:        "pixels_export",
			Description: "Export a region of an image as raw samples in a chosen byte layout, returned base64 encoded.",
			InputSchema: object(transferProperties(schema{
				"path":        prop("string", "Path to the image file"),
				"x":           prop("integer", "Left edge of the region. Default 0"),
				"y":           prop("integer", "Top edge of the region. Default 0"),
				"width":       prop("integer", "Region width. Default: to the right edge"),
				"height":      prop("integer", "Region height. Default: to the bottom edge"),
				"size":        size,
				"input_depth": prop("integer", "Sample depth of a raw input"),
			}), "path"),
		},
		{
			Name:        "pixels_import",
			Description: "Build an image from base64 raw samples in a chosen byte layout and write it to a file.",
			InputSchema: object(transferProperties(schema{
				"output": prop("string", "Destination path; the format follows the extension or a TAG: prefix"),
				"width":  prop("integer", "Image width in pixels"),
				"height": prop("integer", "Image height in pixels"),
				"data":   prop("string", "Base64 encoded samples, rows top to bottom"),
			}), "output", "width", "height", "data"),
		},
		{
			Name:        "image_sample_color",
			Description: "Get the color of a single pixel as hex, 8-bit RGBA, HSL and the full 16-bit channel values.",
			InputSchema: object(schema{
				"path": prop("string", "Path to the image file"),
				"x":    prop("integer", "X coordinate (0-based)"),
				"y":    prop("integer", "Y coordinate (0-based)"),
			}, "path", "x", "y"),
		},
	}
}

func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return reply(req.ID, struct {
		Tools []Tool `json:"tools"`
	}{GetToolDefinitions()})
}
