package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
	"github.com/ironsheep/pixelcodec/internal/quantum"
)

// ToolCallParams are the params of a tools/call request.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// toolResult is MCP's content envelope; the tool result travels as
// indented JSON text.
type toolResult struct {
	Content []textContent `json:"content"`
}

// handleToolsCall runs one tool. Malformed params answer -32602 and a tool
// failure answers -32000 with the error text as data.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return fail(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		slog.Debug("server: tool failed", "tool", params.Name, "error", err)
		return fail(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}
	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fail(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}
	return reply(req.ID, toolResult{Content: []textContent{{Type: "text", Text: string(text)}}})
}

func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case "image_identify":
		return s.handleImageIdentify(ctx, args)
	case "image_formats":
		return s.handleImageFormats()
	case "image_convert":
		return s.handleImageConvert(ctx, args)
	case "image_crop":
		return s.handleImageCrop(ctx, args)
	case "pixels_export":
		return s.handlePixelsExport(ctx, args)
	case "pixels_import":
		return s.handlePixelsImport(ctx, args)
	case "image_sample_color":
		return s.handleImageSampleColor(ctx, args)
	}
	return nil, fmt.Errorf("unknown tool: %s", name)
}

func unmarshalArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// readArgs are the options of a read request.
type readArgs struct {
	Size  string `json:"size,omitempty"`
	Depth int    `json:"depth,omitempty"`
}

func (a readArgs) imageInfo(path string) (*codec.ImageInfo, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	info := &codec.ImageInfo{Filename: path, Depth: a.Depth}
	if a.Size != "" {
		if err := info.SetSize(a.Size); err != nil {
			return nil, err
		}
	}
	return info, nil
}

func warnings(sink *exception.Sink) []string {
	var out []string
	for _, w := range sink.Warnings() {
		out = append(out, w.Error())
	}
	return out
}

// === Image Information Handlers ===

type imageIdentifyArgs struct {
	Path string `json:"path"`
	readArgs
}

// SceneInfo describes one image of a file.
type SceneInfo struct {
	Scene      int    `json:"scene"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Depth      int    `json:"depth"`
	Colorspace string `json:"colorspace"`
	Class      string `json:"class"`
	Alpha      bool   `json:"alpha"`
	Colors     int    `json:"colors,omitempty"`
}

// IdentifyResult is the answer of image_identify.
type IdentifyResult struct {
	Path       string            `json:"path"`
	Format     string            `json:"format"`
	FileSize   int64             `json:"file_size,omitempty"`
	FileSizeH  string            `json:"file_size_human,omitempty"`
	Scenes     []SceneInfo       `json:"scenes"`
	Properties map[string]string `json:"properties,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

func (s *Server) handleImageIdentify(ctx context.Context, args json.RawMessage) (any, error) {
	var a imageIdentifyArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	info, err := a.imageInfo(a.Path)
	if err != nil {
		return nil, err
	}

	var sink exception.Sink
	images, err := s.dispatcher.PingImage(ctx, info, &sink)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, img := range images {
			img.Destroy()
		}
	}()

	result := &IdentifyResult{
		Path:       a.Path,
		Format:     images[0].Magick,
		Properties: images[0].Properties,
		Warnings:   warnings(&sink),
	}
	_, file := codec.SplitFilename(a.Path)
	if fi, err := os.Stat(file); err == nil {
		result.FileSize = fi.Size()
		result.FileSizeH = humanize.IBytes(uint64(fi.Size()))
	}
	for _, img := range images {
		result.Scenes = append(result.Scenes, SceneInfo{
			Scene:      img.Scene,
			Width:      img.Columns,
			Height:     img.Rows,
			Depth:      img.Depth,
			Colorspace: img.Colorspace().String(),
			Class:      img.StorageClass().String(),
			Alpha:      img.Alpha(),
			Colors:     len(img.Colormap),
		})
	}
	return result, nil
}

// FormatInfo describes one registered format.
type FormatInfo struct {
	Format      string   `json:"format"`
	Description string   `json:"description,omitempty"`
	Read        bool     `json:"read"`
	Write       bool     `json:"write"`
	Adjoin      bool     `json:"multi_image"`
	Raw         bool     `json:"raw"`
	Extensions  []string `json:"extensions,omitempty"`
}

func (s *Server) handleImageFormats() (any, error) {
	var out []FormatInfo
	for _, e := range s.dispatcher.Registry().List() {
		out = append(out, FormatInfo{
			Format:      e.Tag,
			Description: e.Description,
			Read:        e.CanDecode(),
			Write:       e.CanEncode(),
			Adjoin:      e.Flags.Has(codec.Adjoin),
			Raw:         e.Flags.Has(codec.RawSupport),
			Extensions:  e.Extensions,
		})
	}
	return map[string]any{"formats": out}, nil
}

// === Conversion Handlers ===

type imageConvertArgs struct {
	Input   string            `json:"input"`
	Output  string            `json:"output"`
	Quality int               `json:"quality,omitempty"`
	Options map[string]string `json:"options,omitempty"`
	readArgs
}

// ConvertResult is the answer of image_convert.
type ConvertResult struct {
	Input      string   `json:"input"`
	Output     string   `json:"output"`
	Format     string   `json:"format"`
	Scenes     int      `json:"scenes"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	OutputSize string   `json:"output_size,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

func (s *Server) handleImageConvert(ctx context.Context, args json.RawMessage) (any, error) {
	var a imageConvertArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Output == "" {
		return nil, fmt.Errorf("output is required")
	}
	in, err := a.imageInfo(a.Input)
	if err != nil {
		return nil, err
	}
	in.Options = a.Options

	var sink exception.Sink
	images, err := s.dispatcher.ReadImage(ctx, in, &sink)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, img := range images {
			img.Destroy()
		}
	}()

	out := &codec.ImageInfo{
		Filename: a.Output,
		Depth:    a.Depth,
		Quality:  a.Quality,
		Options:  a.Options,
	}
	if err := s.dispatcher.WriteImage(ctx, out, images, &sink); err != nil {
		return nil, err
	}
	s.cache.Evict(a.Output)

	tag, file := codec.SplitFilename(a.Output)
	if tag == "" {
		tag = s.dispatcher.Registry().ByExtension(file)
	}
	result := &ConvertResult{
		Input:    a.Input,
		Output:   a.Output,
		Format:   tag,
		Scenes:   len(images),
		Width:    images[0].Columns,
		Height:   images[0].Rows,
		Warnings: warnings(&sink),
	}
	if fi, err := os.Stat(file); err == nil {
		result.OutputSize = humanize.IBytes(uint64(fi.Size()))
	}
	return result, nil
}

type imageCropArgs struct {
	Path  string  `json:"path"`
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Scale float64 `json:"scale"`
	readArgs
}

func (s *Server) handleImageCrop(ctx context.Context, args json.RawMessage) (any, error) {
	var a imageCropArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.load(ctx, a.Path, a.readArgs)
	if err != nil {
		return nil, err
	}
	return Crop(ctx, s.dispatcher, img, a.X1, a.Y1, a.X2, a.Y2, a.Scale)
}

func (s *Server) load(ctx context.Context, path string, a readArgs) (*pixel.Image, error) {
	info, err := a.imageInfo(path)
	if err != nil {
		return nil, err
	}
	return s.cache.Load(ctx, info)
}

// === Pixel Transfer Handlers ===

// transferArgs select the byte layout of a pixel transfer.
type transferArgs struct {
	Type   string `json:"type,omitempty"`
	Depth  int    `json:"depth,omitempty"`
	Endian string `json:"endian,omitempty"`
	Format string `json:"format,omitempty"`
	Pack   *bool  `json:"pack,omitempty"`
	Pad    int    `json:"pad,omitempty"`
}

// quantumInfo applies the defaults (RGBA, 8-bit, MSB, unsigned, packed)
// and builds the transfer configuration.
func (a transferArgs) quantumInfo() (*quantum.Info, quantum.Type, error) {
	if a.Type == "" {
		a.Type = "RGBA"
	}
	if a.Depth == 0 {
		a.Depth = 8
	}
	qt, err := quantum.ParseType(a.Type)
	if err != nil {
		return nil, 0, err
	}
	q := quantum.NewInfo(nil)
	if err := q.SetDepth(a.Depth); err != nil {
		return nil, 0, err
	}
	if a.Format != "" {
		f, err := quantum.ParseFormat(a.Format)
		if err != nil {
			return nil, 0, err
		}
		if err := q.SetFormat(f); err != nil {
			return nil, 0, err
		}
	}
	endian, err := quantum.ParseEndian(a.Endian)
	if err != nil {
		return nil, 0, err
	}
	q.SetEndian(endian)
	if a.Pack != nil {
		q.SetPack(*a.Pack)
	}
	if err := q.SetPad(a.Pad); err != nil {
		return nil, 0, err
	}
	return q, qt, nil
}

type pixelsExportArgs struct {
	Path   string `json:"path"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	transferArgs
	Size       string `json:"size,omitempty"`
	InputDepth int    `json:"input_depth,omitempty"`
}

// PixelsResult describes a block of raw samples.
type PixelsResult struct {
	Type   string `json:"type"`
	Depth  int    `json:"depth"`
	Endian string `json:"endian"`
	Format string `json:"format"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Length int    `json:"length"`
	Data   string `json:"data,omitempty"`
	Output string `json:"output,omitempty"`
}

func (s *Server) handlePixelsExport(ctx context.Context, args json.RawMessage) (any, error) {
	var a pixelsExportArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	q, qt, err := a.quantumInfo()
	if err != nil {
		return nil, err
	}
	img, err := s.load(ctx, a.Path, readArgs{Size: a.Size, Depth: a.InputDepth})
	if err != nil {
		return nil, err
	}

	if a.Width == 0 {
		a.Width = img.Columns - a.X
	}
	if a.Height == 0 {
		a.Height = img.Rows - a.Y
	}
	r := image.Rect(a.X, a.Y, a.X+a.Width, a.Y+a.Height)
	if a.Width <= 0 || a.Height <= 0 || !r.In(img.Bounds()) {
		return nil, fmt.Errorf("region %dx%d+%d+%d outside image bounds %dx%d",
			a.Width, a.Height, a.X, a.Y, img.Columns, img.Rows)
	}

	buf := make([]byte, q.Extent(qt, a.Width, a.Height))
	n, err := q.ExportImage(img, r, qt, buf)
	if err != nil {
		return nil, err
	}
	return &PixelsResult{
		Type:   qt.String(),
		Depth:  int(q.Depth()),
		Endian: q.Endian().String(),
		Format: q.Format().String(),
		X:      a.X,
		Y:      a.Y,
		Width:  a.Width,
		Height: a.Height,
		Length: n,
		Data:   base64.StdEncoding.EncodeToString(buf[:n]),
	}, nil
}

type pixelsImportArgs struct {
	Output string `json:"output"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   string `json:"data"`
	transferArgs
}

func (s *Server) handlePixelsImport(ctx context.Context, args json.RawMessage) (any, error) {
	var a pixelsImportArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Output == "" {
		return nil, fmt.Errorf("output is required")
	}
	q, qt, err := a.quantumInfo()
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}

	img, err := pixel.New(a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	defer img.Destroy()
	if strings.HasPrefix(qt.String(), "Gray") {
		img.SetColorspace(pixel.GrayColorspace)
	}
	img.Depth = min(int(q.Depth()), pixel.QuantumDepth)

	var sink exception.Sink
	n, err := q.ImportImage(img, img.Bounds(), qt, data)
	if err != nil {
		if !exception.IsWarning(err) {
			return nil, err
		}
		sink.Add(err)
	}

	out := &codec.ImageInfo{Filename: a.Output}
	if err := s.dispatcher.WriteImage(ctx, out, []*pixel.Image{img}, &sink); err != nil {
		return nil, err
	}
	s.cache.Evict(a.Output)

	return map[string]any{
		"pixels": &PixelsResult{
			Type:   qt.String(),
			Depth:  int(q.Depth()),
			Endian: q.Endian().String(),
			Format: q.Format().String(),
			Width:  a.Width,
			Height: a.Height,
			Length: n,
			Output: a.Output,
		},
		"warnings": warnings(&sink),
	}, nil
}

// === Color Handlers ===

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	readArgs
}

func (s *Server) handleImageSampleColor(ctx context.Context, args json.RawMessage) (any, error) {
	var a imageSampleColorArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.load(ctx, a.Path, a.readArgs)
	if err != nil {
		return nil, err
	}
	return SampleColor(img, a.X, a.Y)
}
