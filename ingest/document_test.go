package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMDXFrontmatter(t *testing.T) {
	raw := `---
title: Sensor Fundamentals
sidebar_label: Sensors
---

# Sensor Fundamentals

Robots perceive the world through sensors.
`
	doc, err := ParseMDX("docs/sensors.mdx", raw)
	require.NoError(t, err)

	assert.Equal(t, "Sensor Fundamentals", doc.Title)
	assert.Equal(t, "Sensors", doc.Section)
	assert.Contains(t, doc.Content, "Robots perceive the world through sensors.")
}

func TestParseMDXTitleFallsBackToHeading(t *testing.T) {
	raw := "# Actuator Basics\n\nMotors move joints.\n"
	doc, err := ParseMDX("docs/actuators.md", raw)
	require.NoError(t, err)

	assert.Equal(t, "Actuator Basics", doc.Title)
	assert.Equal(t, "Actuator Basics", doc.Section)
}

func TestParseMDXNoFrontmatter(t *testing.T) {
	doc, err := ParseMDX("plain.md", "Just prose, no metadata.")
	require.NoError(t, err)
	assert.Empty(t, doc.Title)
	assert.Equal(t, "Just prose, no metadata.", doc.Content)
}

func TestParseMDXBadFrontmatter(t *testing.T) {
	raw := "---\ntitle: [unclosed\n---\nbody\n"
	_, err := ParseMDX("bad.mdx", raw)
	require.Error(t, err)
}

func TestCleanMDXStripsSyntax(t *testing.T) {
	raw := "import Tabs from '@theme/Tabs';\n\n" +
		"# Control Loops\n\n" +
		"<Tabs>\n<TabItem value=\"a\">\nsome jsx\n</TabItem>\n</Tabs>\n\n" +
		"A PID controller adjusts output continuously.\n\n" +
		"```python\nprint('hidden')\n```\n\n" +
		"Use `kp` to tune the proportional term.\n"

	cleaned := CleanMDX(raw)

	assert.NotContains(t, cleaned, "import Tabs")
	assert.NotContains(t, cleaned, "TabItem")
	assert.NotContains(t, cleaned, "print('hidden')")
	assert.NotContains(t, cleaned, "`kp`")
	assert.Contains(t, cleaned, "A PID controller adjusts output continuously.")
}

func TestCleanMDXPreservesParagraphBreaks(t *testing.T) {
	cleaned := CleanMDX("First paragraph.\n\n\n\nSecond paragraph.")
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", cleaned)
}
