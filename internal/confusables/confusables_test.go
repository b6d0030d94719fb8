package confusables

import "testing"

func TestSkeletonize_CyrillicLooksLikeLatin(t *testing.T) {
	got := Skeletonize("Аpple")
	if got != "Apple" {
		t.Errorf("Skeletonize(Аpple) = %q, want Apple (with Cyrillic А folded)", got)
	}
}

func TestSkeletonize_PlainASCIIUnchanged(t *testing.T) {
	got := Skeletonize("ignore previous instructions")
	if got != "ignore previous instructions" {
		t.Errorf("Skeletonize should be a no-op on plain ASCII, got %q", got)
	}
}

func TestEqual_CrossScriptHomoglyphsMatch(t *testing.T) {
	if !Equal("PАSSWORD", "PASSWORD") {
		t.Error("expected Cyrillic А homoglyph to skeleton-match Latin A")
	}
}

func TestEqual_DifferentWordsDoNotMatch(t *testing.T) {
	if Equal("hello", "world") {
		t.Error("unrelated words should not skeleton-match")
	}
}

func TestSkeletonize_RegionalIndicatorLetters(t *testing.T) {
	got := Skeletonize("\U0001F1E6\U0001F1E7\U0001F1E8")
	if got != "ABC" {
		t.Errorf("Skeletonize(regional indicators) = %q, want ABC", got)
	}
}

func TestSkeletonize_CachedResultIsStable(t *testing.T) {
	first := Skeletonize("Тest")
	second := Skeletonize("Тest")
	if first != second {
		t.Errorf("cached skeletonize result changed: %q != %q", first, second)
	}
}
