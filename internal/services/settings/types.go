package settings

// Watermark positions accepted by the export pipeline.
var WatermarkPositions = []string{"top-left", "top-right", "bottom-left", "bottom-right", "center"}

// Frame rates accepted by the export pipeline.
var FrameRates = []int{24, 25, 30, 60}

// Settings holds the user's export preferences.
type Settings struct {
	Watermark        Watermark        `json:"watermark" yaml:"watermark"`
	BackgroundMusic  BackgroundMusic  `json:"backgroundMusic" yaml:"backgroundMusic"`
	Export           Export           `json:"export" yaml:"export"`
	TemplateDefaults TemplateDefaults `json:"templateDefaults" yaml:"templateDefaults"`
}

type Watermark struct {
	Text     string  `json:"text" yaml:"text"`
	Position string  `json:"position" yaml:"position"`
	Opacity  float64 `json:"opacity" yaml:"opacity"`
}

type BackgroundMusic struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Volume      float64 `json:"volume" yaml:"volume"`
	CustomFile  *string `json:"customFile" yaml:"customFile"`
	Loop        bool    `json:"loop" yaml:"loop"`
	FadeEffects bool    `json:"fadeEffects" yaml:"fadeEffects"`
}

type Export struct {
	CRFValue             int    `json:"crfValue" yaml:"crfValue"`
	PixelFormat          string `json:"pixelFormat" yaml:"pixelFormat"`
	AudioEncoding        string `json:"audioEncoding" yaml:"audioEncoding"`
	FrameRate            int    `json:"frameRate" yaml:"frameRate"`
	HardwareAcceleration bool   `json:"hardwareAcceleration" yaml:"hardwareAcceleration"`
	MobileOptimized      bool   `json:"mobileOptimized" yaml:"mobileOptimized"`
	IncludeMetadata      bool   `json:"includeMetadata" yaml:"includeMetadata"`
}

type TemplateDefaults struct {
	PreferredTemplate     string  `json:"preferredTemplate" yaml:"preferredTemplate"`
	TransitionDuration    float64 `json:"transitionDuration" yaml:"transitionDuration"`
	KenBurnsZoom          float64 `json:"kenBurnsZoom" yaml:"kenBurnsZoom"`
	ClipDuration          float64 `json:"clipDuration" yaml:"clipDuration"`
	AutoCropVertical      bool    `json:"autoCropVertical" yaml:"autoCropVertical"`
	SmartContentDetection bool    `json:"smartContentDetection" yaml:"smartContentDetection"`
	AutoEnhanceColors     bool    `json:"autoEnhanceColors" yaml:"autoEnhanceColors"`
	AutoGenerateCaptions  bool    `json:"autoGenerateCaptions" yaml:"autoGenerateCaptions"`
}

// Defaults returns the factory settings.
func Defaults() Settings {
	return Settings{
		Watermark: Watermark{
			Text:     "ReelSmith",
			Position: "bottom-right",
			Opacity:  0.7,
		},
		BackgroundMusic: BackgroundMusic{
			Enabled:     true,
			Volume:      0.3,
			Loop:        true,
			FadeEffects: true,
		},
		Export: Export{
			CRFValue:             22,
			PixelFormat:          "yuv420p",
			AudioEncoding:        "aac",
			FrameRate:            30,
			HardwareAcceleration: true,
			MobileOptimized:      true,
			IncludeMetadata:      true,
		},
		TemplateDefaults: TemplateDefaults{
			PreferredTemplate:  "none",
			TransitionDuration: 0.5,
			KenBurnsZoom:       1.1,
			ClipDuration:       2.0,
			AutoCropVertical:   true,
		},
	}
}

// Format is a settings document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Document is an exported settings file.
type Document struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}
