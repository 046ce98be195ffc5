package notify

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/Darkness4/debounce-go/utils/ptr"
)

// NotificationFormats is a collection of formats for notifications.
type NotificationFormats struct {
	ConfigReloaded NotificationFormat `yaml:"configReloaded,omitempty"`
	Panicked       NotificationFormat `yaml:"panicked,omitempty"`
	Stable         NotificationFormat `yaml:"stable,omitempty"`
	Noise          NotificationFormat `yaml:"noise,omitempty"`
	Error          NotificationFormat `yaml:"error,omitempty"`
	Canceled       NotificationFormat `yaml:"canceled,omitempty"`
}

// NotificationFormat is a format for a notification.
type NotificationFormat struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	Title    string `yaml:"title,omitempty"`
	Message  string `yaml:"message,omitempty"`
	Priority int    `yaml:"priority,omitempty"`
}

// NotificationTemplates is a collection of templates for notifications.
type NotificationTemplates struct {
	ConfigReloaded NotificationTemplate
	Panicked       NotificationTemplate
	Stable         NotificationTemplate
	Noise          NotificationTemplate
	Error          NotificationTemplate
	Canceled       NotificationTemplate
}

// NotificationTemplate is a template for a notification.
type NotificationTemplate struct {
	TitleTemplate   *template.Template
	MessageTemplate *template.Template
}

// DefaultNotificationFormats is the default notification formats.
var DefaultNotificationFormats = NotificationFormats{
	ConfigReloaded: NotificationFormat{
		Enabled:  ptr.Ref(true),
		Title:    "config reloaded",
		Priority: 10,
	},
	Panicked: NotificationFormat{
		Enabled:  ptr.Ref(true),
		Title:    "panicked",
		Message:  "{{ .Capture }}",
		Priority: 10,
	},
	Stable: NotificationFormat{
		Enabled:  ptr.Ref(true),
		Title:    "{{ .Signal }} is now {{ .Value }}",
		Message:  "{{ .Signal }} changed from {{ .Previous }} to {{ .Value }}",
		Priority: 7,
	},
	Noise: NotificationFormat{
		Enabled: ptr.Ref(false),
		Title:   "{{ .Signal }} is unstable",
		Message: "{{ .Candidate }} was discarded",
	},
	Error: NotificationFormat{
		Enabled:  ptr.Ref(true),
		Title:    "debouncing {{ .Signal }} failed",
		Message:  "{{ .Error }}",
		Priority: 10,
	},
	Canceled: NotificationFormat{
		Enabled: ptr.Ref(false),
		Title:   "stopped watching {{ .Signal }}",
	},
}

func (old *NotificationFormat) applyNotificationFormatDefault(
	newFormat NotificationFormat,
) {
	if newFormat.Enabled != nil {
		old.Enabled = newFormat.Enabled
	}
	if newFormat.Title != "" {
		old.Title = newFormat.Title
	}
	if newFormat.Message != "" {
		old.Message = newFormat.Message
	}
	if newFormat.Priority != 0 {
		old.Priority = newFormat.Priority
	}
}

func applyNotificationFormatsDefault(newFormat NotificationFormats) NotificationFormats {
	formats := DefaultNotificationFormats
	formats.ConfigReloaded.applyNotificationFormatDefault(newFormat.ConfigReloaded)
	formats.Panicked.applyNotificationFormatDefault(newFormat.Panicked)
	formats.Stable.applyNotificationFormatDefault(newFormat.Stable)
	formats.Noise.applyNotificationFormatDefault(newFormat.Noise)
	formats.Error.applyNotificationFormatDefault(newFormat.Error)
	formats.Canceled.applyNotificationFormatDefault(newFormat.Canceled)
	return formats
}

func initializeTemplate(name string, format NotificationFormat) (NotificationTemplate, error) {
	title, err := template.New(name + "Title").Parse(format.Title)
	if err != nil {
		return NotificationTemplate{}, fmt.Errorf("%s title: %w", name, err)
	}
	message, err := template.New(name + "Message").Parse(format.Message)
	if err != nil {
		return NotificationTemplate{}, fmt.Errorf("%s message: %w", name, err)
	}
	return NotificationTemplate{
		TitleTemplate:   title,
		MessageTemplate: message,
	}, nil
}

func initializeTemplates(formats NotificationFormats) (t NotificationTemplates, err error) {
	if t.ConfigReloaded, err = initializeTemplate("ConfigReloaded", formats.ConfigReloaded); err != nil {
		return t, err
	}
	if t.Panicked, err = initializeTemplate("Panicked", formats.Panicked); err != nil {
		return t, err
	}
	if t.Stable, err = initializeTemplate("Stable", formats.Stable); err != nil {
		return t, err
	}
	if t.Noise, err = initializeTemplate("Noise", formats.Noise); err != nil {
		return t, err
	}
	if t.Error, err = initializeTemplate("Error", formats.Error); err != nil {
		return t, err
	}
	if t.Canceled, err = initializeTemplate("Canceled", formats.Canceled); err != nil {
		return t, err
	}
	return t, nil
}

// FormatedNotifier is a notifier that formats the notifications.
type FormatedNotifier struct {
	BaseNotifier
	NotificationFormats
	NotificationTemplates
}

// NewFormatedNotifier creates a new FormatedNotifier. Unset formats fall back
// to DefaultNotificationFormats.
func NewFormatedNotifier(
	notifier BaseNotifier,
	formats NotificationFormats,
) (*FormatedNotifier, error) {
	formats = applyNotificationFormatsDefault(formats)
	templates, err := initializeTemplates(formats)
	if err != nil {
		return nil, err
	}
	return &FormatedNotifier{
		BaseNotifier:          notifier,
		NotificationFormats:   formats,
		NotificationTemplates: templates,
	}, nil
}

func (n *FormatedNotifier) send(
	ctx context.Context,
	format NotificationFormat,
	tmpl NotificationTemplate,
	data any,
) error {
	if !ptr.Deref(format.Enabled, false) {
		return nil
	}
	var titleSB strings.Builder
	var messageSB strings.Builder
	if err := tmpl.TitleTemplate.Execute(&titleSB, data); err != nil {
		return err
	}
	if err := tmpl.MessageTemplate.Execute(&messageSB, data); err != nil {
		return err
	}
	return n.Notify(ctx, titleSB.String(), messageSB.String(), format.Priority)
}

// NotifyConfigReloaded sends a notification that the config was reloaded.
func (n *FormatedNotifier) NotifyConfigReloaded(ctx context.Context) error {
	return n.send(ctx, n.NotificationFormats.ConfigReloaded, n.NotificationTemplates.ConfigReloaded, nil)
}

// NotifyPanicked sends a notification that the program panicked.
func (n *FormatedNotifier) NotifyPanicked(ctx context.Context, capture any) error {
	return n.send(
		ctx,
		n.NotificationFormats.Panicked,
		n.NotificationTemplates.Panicked,
		struct {
			Capture any
		}{
			Capture: capture,
		},
	)
}

// NotifyStable sends a notification that a signal settled on a new value.
func (n *FormatedNotifier) NotifyStable(
	ctx context.Context,
	signal string,
	labels map[string]string,
	previous string,
	value string,
) error {
	return n.send(
		ctx,
		n.NotificationFormats.Stable,
		n.NotificationTemplates.Stable,
		struct {
			Signal   string
			Labels   map[string]string
			Previous string
			Value    string
		}{
			Signal:   signal,
			Labels:   labels,
			Previous: previous,
			Value:    value,
		},
	)
}

// NotifyNoise sends a notification that a candidate was discarded.
func (n *FormatedNotifier) NotifyNoise(
	ctx context.Context,
	signal string,
	labels map[string]string,
	candidate string,
	discarded string,
) error {
	return n.send(
		ctx,
		n.NotificationFormats.Noise,
		n.NotificationTemplates.Noise,
		struct {
			Signal    string
			Labels    map[string]string
			Candidate string
			Discarded string
		}{
			Signal:    signal,
			Labels:    labels,
			Candidate: candidate,
			Discarded: discarded,
		},
	)
}

// NotifyError sends a notification that debouncing a signal failed.
func (n *FormatedNotifier) NotifyError(
	ctx context.Context,
	signal string,
	labels map[string]string,
	err error,
) error {
	return n.send(
		ctx,
		n.NotificationFormats.Error,
		n.NotificationTemplates.Error,
		struct {
			Signal string
			Labels map[string]string
			Error  error
		}{
			Signal: signal,
			Labels: labels,
			Error:  err,
		},
	)
}

// NotifyCanceled sends a notification that a signal is no longer watched.
func (n *FormatedNotifier) NotifyCanceled(
	ctx context.Context,
	signal string,
	labels map[string]string,
) error {
	return n.send(
		ctx,
		n.NotificationFormats.Canceled,
		n.NotificationTemplates.Canceled,
		struct {
			Signal string
			Labels map[string]string
		}{
			Signal: signal,
			Labels: labels,
		},
	)
}
