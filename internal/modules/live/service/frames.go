package service

import "anoa.com/clubportal/internal/modules/live/dto"

// Frames returns the frames uid may see whose version moved past sent.
// sent may be nil; it is updated in place when not.
func Frames(v *View, uid string, sent map[Topic]uint64) []dto.Frame {
	isAdmin := v.AdminIDs.Contains(uid)
	frames := make([]dto.Frame, 0, len(AllTopics))
	for _, topic := range AllTopics {
		if topic.AdminOnly() && !isAdmin {
			continue
		}
		version := v.Version(topic)
		if sent != nil {
			if version <= sent[topic] {
				continue
			}
			sent[topic] = version
		}
		frames = append(frames, dto.Frame{
			Topic:   string(topic),
			Version: version,
			Data:    v.Data(topic),
		})
	}
	return frames
}
