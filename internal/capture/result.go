package capture

// ChannelData is one channel's recorded payload: raw bytes plus a transient
// playback URL. Channels that produced no chunks are absent from the
// result, not empty.
type ChannelData struct {
	Bytes       []byte `json:"bytes" yaml:"-"`
	BlobURL     string `json:"blobUrl" yaml:"blobUrl"`
	ContentType string `json:"contentType" yaml:"contentType"`
}

// Result bundles everything a finished capture produced.
type Result struct {
	CaptureData     *ChannelData `json:"captureData,omitempty" yaml:"captureData,omitempty"`
	CameraData      *ChannelData `json:"cameraData,omitempty" yaml:"cameraData,omitempty"`
	AudioData       *ChannelData `json:"audioData,omitempty" yaml:"audioData,omitempty"`
	SystemAudioData *ChannelData `json:"systemAudioData,omitempty" yaml:"systemAudioData,omitempty"`
	CombinedData    *ChannelData `json:"combinedData,omitempty" yaml:"combinedData,omitempty"`
	Options         Options      `json:"options" yaml:"options"`
	CaptureID       string       `json:"captureId" yaml:"captureId"`
}

// assembleResult converts the per-channel chunk buffers into the outbound
// bundle.
func assembleResult(id string, opts Options, chunks map[Channel]*chunkBuffer, blobs *BlobStore) Result {
	audioCT := opts.effectiveAudioContentType()
	videoCT := opts.ContentType
	if videoCT == "" {
		videoCT = DefaultContentType
	}

	channelData := func(ch Channel, contentType string) *ChannelData {
		buf := chunks[ch]
		if buf == nil || buf.empty() {
			return nil
		}
		data := buf.concat()
		return &ChannelData{
			Bytes:       data,
			BlobURL:     blobs.Create(data, contentType),
			ContentType: contentType,
		}
	}

	return Result{
		CaptureData:     channelData(ChannelScreen, videoCT),
		CameraData:      channelData(ChannelCamera, videoCT),
		AudioData:       channelData(ChannelMicAudio, audioCT),
		SystemAudioData: channelData(ChannelSystemAudio, audioCT),
		CombinedData:    channelData(ChannelCombined, opts.EffectiveContentType()),
		Options:         opts,
		CaptureID:       id,
	}
}
