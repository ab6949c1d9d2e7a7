package visibility

import "strconv"

// Key format is fixed by the cache protocol:
// is_limited_<type>_<id> and shown_comment_count_<type>_<id>.

func isLimitedKey(targetType string, targetID int64) string {
	return isLimitedKeyPrefix + targetType + "_" + strconv.FormatInt(targetID, 10)
}

func shownCountKey(targetType string, targetID int64) string {
	return shownCountKeyPrefix + targetType + "_" + strconv.FormatInt(targetID, 10)
}
