// Package ratings normalises ratings-site records into canonical
// instructors and reviews.
//
// Zero averages and negative percentages are how the site says "no data";
// both become unknown metrics rather than zeros. Tag and course multisets
// are merged by canonical name and replace the cached set wholesale.
// Instructors the site files under a broad department (Engineering,
// Computer Science, Science) are reassigned by their dominant course prefix.
package ratings
