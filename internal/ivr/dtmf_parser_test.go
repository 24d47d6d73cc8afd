package ivr

import "testing"

func TestParseDTMFTags(t *testing.T) {
	tags := ParseDTMFTags("Let me press that now <dtmf>1</dtmf> and then <dtmf>2w3</dtmf>")
	if len(tags) != 2 || tags[0] != "1" || tags[1] != "2w3" {
		t.Fatalf("unexpected tags: %v", tags)
	}
}

func TestStripDTMFTags(t *testing.T) {
	out := StripDTMFTags("pressing <dtmf>5</dtmf> now")
	if out != "pressing  now" {
		t.Fatalf("unexpected stripped text: %q", out)
	}
}
