// Package prompt builds the instruction text sent alongside the images.
package prompt

import (
	"fmt"
	"strings"
)

const descriptionTemplate = `You are an expert AI virtual fitting room assistant.

Task: Transform this person's image to show them wearing: %s

Requirements:
- Keep the person's face, body shape, pose, and proportions EXACTLY the same
- Add the described clothing naturally fitting their body
- Maintain realistic lighting, shadows, and fabric physics
- Keep the original background
- Ensure the clothing looks professional and realistic
- Match the style and colors from the description

Generate a photorealistic image showing the person wearing the described clothing.`

const garmentImageTemplate = `You are an expert AI virtual fitting room assistant.

Task: Transform this person's image to show them wearing the clothing from the provided image.

Requirements:
- Keep the person's face, body shape, pose, and proportions EXACTLY the same
- Transfer the clothing from the clothing image to the person naturally
- Maintain realistic lighting, shadows, and fabric physics
- Keep the original background
- Ensure the clothing looks professional and realistic
- Match the style and colors from the clothing image%s

Generate a photorealistic image showing the person wearing the clothing.`

const backgroundTemplate = `You are an expert AI background replacement assistant.

Task: Change the background AND camera angle/perspective of this image.

CRITICAL RULES - STRICTLY FOLLOW:
- DO NOT change the person's appearance, face, body, or clothing AT ALL
- DO NOT modify the person's pose, position, or proportions
- DO NOT alter any clothing, accessories, or items the person is wearing
- CHANGE the background to: %s
%s
- The camera angle change should be noticeable and appropriate for the new background
- Maintain realistic lighting that matches the new background
- Ensure the person looks natural in the new environment
- Keep all shadows and reflections consistent with the new background
- Adjust the viewing angle so it looks like the photo was taken from a different perspective in the new location

Generate a photorealistic image with the new background and DIFFERENT camera angle while keeping the person completely unchanged.`

// DefaultGarmentNotes stands in for a missing description when a garment image is supplied.
const DefaultGarmentNotes = "the clothing from the provided image"

// ForDescription instructs the model to dress the person in the described clothing.
func ForDescription(description string) string {
	return fmt.Sprintf(descriptionTemplate, description)
}

// ForGarmentImage instructs the model to transfer the clothing shown in the
// second image. Non-empty notes are appended as an extra requirement.
func ForGarmentImage(notes string) string {
	extra := ""
	if notes = strings.TrimSpace(notes); notes != "" && notes != DefaultGarmentNotes {
		extra = "\n- Additional details about the clothing: " + notes
	}
	return fmt.Sprintf(garmentImageTemplate, extra)
}

// Build picks the template: a garment image always wins over a bare description.
func Build(description string, hasGarmentImage bool) string {
	if hasGarmentImage {
		return ForGarmentImage(description)
	}
	return ForDescription(description)
}

// ForBackground instructs the model to replace the scene and camera angle
// while leaving the person untouched.
func ForBackground(background, cameraAngle string) string {
	var camera string
	if angle := strings.TrimSpace(cameraAngle); angle != "" {
		camera = "\nCRITICAL CAMERA ANGLE REQUIREMENT:\n" +
			"- You MUST change the camera angle/perspective to: " + angle + "\n" +
			"- This is a mandatory requirement, not optional\n" +
			"- The camera angle change must be clearly visible and noticeable"
	} else {
		camera = "\nCAMERA ANGLE REQUIREMENT:\n" +
			"- You MUST change the camera angle/perspective to better match the new background environment\n" +
			"- The camera angle should be different from the original photo"
	}
	return fmt.Sprintf(backgroundTemplate, background, camera)
}
