package catalog

// GraphQL documents for the broadcaster's open API. The schema exposes a
// two-step lookup: taxonomies are resolved first, then content hanging off
// one taxonomy is fetched through the taxonomy(id:) field.

const taxonomiesQuery = `
query GetTaxonomies($limit: Int!, $keyword: String) {
  taxonomies(limit: $limit, keyword: $keyword) {
    id
    title
    type
    url
    description
  }
}`

const taxonomyDiffusionsQuery = `
query GetDiffusions($taxonomyId: ID!, $limit: Int!) {
  taxonomy(id: $taxonomyId) {
    id
    title
    diffusions(limit: $limit) {
      id
      title
      url
      standFirst
      diffusionDate
      brand {
        id
        title
        station {
          name
        }
      }
      podcastEpisode {
        url
      }
    }
  }
}`

const brandQuery = `
query GetBrand($brandId: ID!) {
  brand(id: $brandId) {
    id
    title
    baseline
    description
    url
    station {
      name
    }
    concepts {
      id
    }
  }
}`

const gridQuery = `
query GetStationGrid($stationCode: String!) {
  grid(station: $stationCode) {
    station {
      id
      name
    }
    steps {
      startTime
      endTime
      diffusion {
        id
        title
        url
        standFirst
        brand {
          id
          title
        }
      }
    }
  }
}`
